package identity

import (
	"strings"

	"github.com/you/fanharvest/internal/core"
)

// MessageID derives the content-addressed id for a message. Attachment URLs
// are replaced by the extractor-provided seed and paid badges are cleared
// before serializing, so volatile CDN links and ephemeral badge flips do not
// change a message's identity, while text, role, time and the attachment set
// still do.
func MessageID(msg core.Message, seed string) (string, error) {
	msg.ID = ""
	if len(msg.Attachments) > 0 {
		atts := make([]core.Attachment, len(msg.Attachments))
		copy(atts, msg.Attachments)
		for i := range atts {
			atts[i].URL = seed
			atts[i].Paid = core.PaidNone
		}
		msg.Attachments = atts
	}
	canon, err := CanonicalJSON(msg)
	if err != nil {
		return "", err
	}
	return HexUTF16(canon), nil
}

// MergeRuns collapses runs of adjacent same-role informational messages
// (synthetic bracketed media/tip tags, no prose) into a single record before
// the result is handed to the storage sink. Contents are joined, attachments
// concatenated, the earliest resolvable time kept, and the merged record's id
// recomputed with the pre-merge head id as its seed.
func MergeRuns(msgs []core.Message) []core.Message {
	if len(msgs) < 2 {
		return msgs
	}
	out := make([]core.Message, 0, len(msgs))
	for _, m := range msgs {
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.Role == m.Role && informational(*last) && informational(m) {
				seed := last.ID
				last.Content = last.Content + " " + m.Content
				last.Attachments = append(last.Attachments, m.Attachments...)
				if last.Time == "" {
					last.Time = m.Time
				}
				if id, err := MessageID(*last, seed); err == nil {
					last.ID = id
				}
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

func informational(m core.Message) bool {
	return len(m.Attachments) > 0 &&
		strings.HasPrefix(m.Content, "<") &&
		strings.HasSuffix(m.Content, ">")
}
