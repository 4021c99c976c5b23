package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/you/fanharvest/internal/core"
	"github.com/you/fanharvest/internal/identity"
)

// Extractor turns a parsed chat document into normalized records. It holds no
// state across calls beyond its clock, logger and counters: every pass is a
// pure transformation over the snapshot it is given.
type Extractor struct {
	clock   Clock
	log     *slog.Logger
	metrics *Metrics
}

// New builds an Extractor. A nil clock means the system clock in the local
// zone; a nil logger means slog.Default(); metrics may be nil.
func New(clock Clock, logger *slog.Logger, metrics *Metrics) *Extractor {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{clock: clock, log: logger, metrics: metrics}
}

// Thread walks the conversation thread of doc and returns the full normalized
// payload, payments included. A missing thread container returns (nil, nil):
// no conversation is selected, which is a state and not an error.
func (e *Extractor) Thread(doc *goquery.Document) (*core.Thread, error) {
	if doc == nil {
		return nil, nil
	}
	thread := doc.Find(selThread).First()
	if thread.Length() == 0 {
		return nil, nil
	}

	out := &core.Thread{
		AccountID:      ownAccountID(doc),
		AccountName:    strings.TrimSpace(doc.Find(selOwnName).First().Text()),
		UserID:         partnerID(doc),
		Username:       partnerName(doc),
		CustomUsername: customName(doc),
	}

	thread.Find(selSection).Each(func(_ int, section *goquery.Selection) {
		ts := e.sectionTimestamp(section)
		section.Find(selBubble).Each(func(_ int, bubble *goquery.Selection) {
			msg, seed, ok := e.message(bubble, ts)
			if !ok {
				return
			}
			id, err := identity.MessageID(msg, seed)
			if err != nil {
				e.metrics.incItemError()
				e.log.Warn("message id failed, item skipped", "err", err)
				return
			}
			msg.ID = id
			out.Messages = append(out.Messages, msg)
		})
	})

	out.Payments = e.Payments(doc)
	for i := range out.Payments {
		out.Payments[i].AccountID = out.AccountID
		out.Payments[i].UserID = out.UserID
	}

	e.metrics.incPass()
	e.metrics.addMessages(len(out.Messages))
	e.metrics.addPayments(len(out.Payments))
	return out, nil
}

// message normalizes a single bubble. The returned seed feeds the id scheme:
// media identifying fragments for media bubbles, empty for plain text.
func (e *Extractor) message(bubble *goquery.Selection, ts string) (core.Message, string, bool) {
	msg := core.Message{Role: core.RoleUser, Time: ts}
	if bubble.HasClass(classFromMe) {
		msg.Role = core.RoleInfluencer
	}

	if media := bubble.Find(selMedia).First(); media.Length() > 0 {
		return e.mediaMessage(media, msg)
	}

	if tip := bubble.Find(selTip).First(); tip.Length() > 0 {
		msg.Content = e.tipContent(bubble, tip)
		return msg, "", msg.Content != ""
	}

	text := strings.TrimSpace(bubble.Find(selMessageText).First().Text())
	if text == "" {
		return core.Message{}, "", false
	}
	msg.Content = text
	return msg, "", true
}

func (e *Extractor) mediaMessage(media *goquery.Selection, msg core.Message) (core.Message, string, bool) {
	var labels []string
	var seeds []string
	media.Find(selMediaItem).Each(func(_ int, item *goquery.Selection) {
		mi, ok := classifyMedia(item)
		if !ok {
			e.metrics.incItemError()
			e.log.Debug("unclassifiable media item skipped")
			return
		}
		mi.paid = resolvePaidState(item)
		msg.Attachments = append(msg.Attachments, core.Attachment{
			Type: mi.kind,
			URL:  mi.url,
			Paid: mi.paid,
		})
		label := string(mi.kind)
		if mi.paid != core.PaidNone {
			label = string(mi.paid) + " " + label
		}
		labels = append(labels, label)
		seeds = append(seeds, urlIDFragment(mi.url, mi.kind))
	})
	if len(msg.Attachments) == 0 {
		return core.Message{}, "", false
	}
	msg.Content = "<" + strings.Join(labels, ", ") + ">"
	return msg, strings.Join(seeds, ""), true
}

// tipContent synthesizes the bracketed tip tag: "<$5_tip> thanks!" or
// "<$5_tip_for_post> ..." when the tip targets a paid post ("under this"
// phrasing). A note opening with a typographic quote is left verbatim; the
// upstream markup is ambiguous there and the raw text is the safer record.
func (e *Extractor) tipContent(bubble, tip *goquery.Selection) string {
	note := strings.TrimSpace(bubble.Find(selMessageText).First().Text())
	if note != "" && startsWithCurlyQuote(note) {
		return note
	}
	tipText := tip.Text()
	price := formatPrice(parsePrice(tipText))
	tag := "<$" + price + "_tip>"
	if strings.Contains(tipText, "under this") {
		tag = "<$" + price + "_tip_for_post>"
	}
	if note == "" {
		return tag
	}
	return tag + " " + note
}

func startsWithCurlyQuote(s string) bool {
	r := []rune(s)[0]
	return r == '“' || r == '‘'
}

// sectionTimestamp resolves one message group's timestamp: the enclosing
// timeline marker's title attribute supplies date and year ("Today" and
// "Yesterday" resolve against the clock), the group's visible or borrowed
// time node supplies the wall clock.
func (e *Extractor) sectionTimestamp(section *goquery.Selection) string {
	title := ""
	if tl := section.Closest(selTimeline); tl.Length() > 0 {
		title, _ = tl.Attr("title")
	}
	ts := combineTimestamp(
		resolveDate(title, e.clock),
		resolveYear(title, e.clock),
		resolveNodeTime(section),
		e.clock,
	)
	if ts == "" {
		e.metrics.incMalformedDate()
		e.log.Debug("could not reconstruct section time", "title", title)
	}
	return ts
}

func ownAccountID(doc *goquery.Document) string {
	return idFromHref(doc.Find(selOwnLink).First())
}

func partnerID(doc *goquery.Document) string {
	return idFromHref(doc.Find(selPartnerLink).First())
}

func idFromHref(sel *goquery.Selection) string {
	href, ok := sel.Attr("href")
	if !ok {
		return ""
	}
	href = strings.Trim(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[i+1:]
	}
	return strings.TrimPrefix(href, "u")
}

// partnerName resolves the conversation partner's display name, primary
// location first.
func partnerName(doc *goquery.Document) string {
	for _, sel := range []string{selPartnerName, selPartnerNameAlt} {
		if name := strings.TrimSpace(doc.Find(sel).First().Text()); name != "" {
			return name
		}
	}
	return ""
}

// customName reads the operator-assigned nickname next to the display name;
// the page renders it in either of two shapes.
func customName(doc *goquery.Document) string {
	for _, sel := range []string{selCustomName, selCustomNameAlt} {
		if name := strings.TrimSpace(doc.Find(sel).First().Text()); name != "" {
			return name
		}
	}
	return ""
}
