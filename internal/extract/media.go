package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/you/fanharvest/internal/core"
)

type mediaItem struct {
	kind core.MediaType
	url  string
	paid core.PaidState
}

var bgURLRe = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)

// classifyMedia inspects one media sub-element and resolves its kind and
// source URL. Order matters: a gif thumbnail also contains an img node, and a
// video node also carries an image poster.
func classifyMedia(item *goquery.Selection) (mediaItem, bool) {
	if gif := item.Find(selMediaGif).First(); gif.Length() > 0 {
		if style, ok := gif.Attr("style"); ok {
			if m := bgURLRe.FindStringSubmatch(style); m != nil && m[1] != "" {
				return mediaItem{kind: core.MediaImage, url: m[1]}, true
			}
		}
		return mediaItem{}, false
	}
	if video := item.Find("video").First(); video.Length() > 0 {
		if poster, ok := video.Attr("poster"); ok && poster != "" {
			return mediaItem{kind: core.MediaVideo, url: poster}, true
		}
		return mediaItem{}, false
	}
	if audio := item.Find(selAudio).First(); audio.Length() > 0 {
		dur := strings.TrimSpace(audio.Find(selAudioDuration).First().Text())
		// No stable URL for voice notes; the displayed duration is the only
		// identifying fragment the page exposes.
		return mediaItem{kind: core.MediaAudio, url: "audio" + dur}, true
	}
	if img := item.Find("img").First(); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok && src != "" {
			return mediaItem{kind: core.MediaImage, url: src}, true
		}
	}
	return mediaItem{}, false
}

// resolvePaidState finds the purchase badge riding with the item's trailing
// time container. The search stops once a time container has been passed;
// a badge further away belongs to a different item.
func resolvePaidState(item *goquery.Selection) core.PaidState {
	passedTime := false
	for next := item.Next(); next.Length() > 0; next = next.Next() {
		st := next.Find(selPaymentState)
		if next.Is(selPaymentState) {
			st = next
		}
		if st.Length() > 0 {
			return paidStateFromText(st.First().Text())
		}
		if next.Is(selMessageTime) || next.Find(selMessageTime).Length() > 0 {
			if passedTime {
				return core.PaidNone
			}
			passedTime = true
		}
	}
	return core.PaidNone
}

func paidStateFromText(text string) core.PaidState {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return core.PaidNone
	}
	if strings.Contains(t, "not") {
		return core.PaidUnpurchased
	}
	return core.PaidPurchased
}

// urlIDFragment picks the stable identifying fragment of a media URL for the
// message id seed: the 6th slash-separated segment of CDN links, the whole
// synthetic URL for audio.
func urlIDFragment(raw string, kind core.MediaType) string {
	if kind == core.MediaAudio {
		return raw
	}
	parts := strings.Split(raw, "/")
	if len(parts) > 5 {
		return parts[5]
	}
	return raw
}
