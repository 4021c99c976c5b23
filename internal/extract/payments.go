package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/you/fanharvest/internal/core"
)

// Payments walks every chat-marker element in doc and derives the
// monetizable events of the visible thread. All emitted payments carry
// pairwise distinct timestamps and a non-zero price.
func (e *Extractor) Payments(doc *goquery.Document) []core.Payment {
	if doc == nil {
		return nil
	}
	var out []core.Payment
	doc.Find(selChatMarker).Each(func(_ int, bubble *goquery.Selection) {
		p, ok := e.payment(bubble)
		if !ok {
			return
		}
		out = append(out, p)
	})
	out = dedupeTimes(out)
	return filterZeroPrice(out)
}

func (e *Extractor) payment(bubble *goquery.Selection) (core.Payment, bool) {
	// A bubble quoting an earlier message with at most one content layer is a
	// quote echo of that message, not a new monetizable event.
	if quote := bubble.Find(selQuote).First(); quote.Length() > 0 {
		if quote.Find(selQuoteLayer).Length() <= 1 {
			return core.Payment{}, false
		}
	}

	region := bubble.Find(selTip).First()
	ptype := core.PaymentTip
	if region.Length() == 0 {
		region = bubble.Find(selPurchase).First()
		ptype = core.PaymentPurchase
	}
	if region.Length() == 0 {
		return core.Payment{}, false
	}

	// Only fan-initiated tips count.
	if ptype == core.PaymentTip && bubble.HasClass(classFromMe) {
		return core.Payment{}, false
	}

	regionText := region.Text()

	p := core.Payment{
		ID:         "",
		Type:       ptype,
		Price:      parsePrice(regionText),
		VaultName:  "Unknown",
		Content:    strings.TrimSpace(regionText),
		MediaTypes: e.paymentMedia(region),
	}

	p.PaidStatus = core.PaidStatusPaid
	if ptype == core.PaymentPurchase && strings.Contains(strings.ToLower(regionText), "not paid yet") {
		p.PaidStatus = core.PaidStatusNotPaid
	}

	p.Status = core.StatusNotRead
	if bubble.Find(selReadIcon).Length() > 0 {
		p.Status = core.StatusRead
	}

	p.Time = e.sectionTimestamp(bubble)
	return p, true
}

// paymentMedia classifies the media block immediately preceding the price
// indicator's time container, gif mapping to image like everywhere else.
func (e *Extractor) paymentMedia(region *goquery.Selection) []core.MediaType {
	media := region.PrevAll().Filter(selMedia).First()
	if media.Length() == 0 {
		media = region.Parent().Find(selMedia).First()
	}
	if media.Length() == 0 {
		return nil
	}
	var kinds []core.MediaType
	media.Find(selMediaItem).Each(func(_ int, item *goquery.Selection) {
		mi, ok := classifyMedia(item)
		if !ok {
			e.metrics.incItemError()
			return
		}
		kinds = append(kinds, mi.kind)
	})
	return kinds
}

// dedupeTimes bumps colliding timestamps forward whole seconds until every
// payment in the pass carries a distinct time. Discovery order is the
// tie-break: the first occurrence keeps its original time.
func dedupeTimes(payments []core.Payment) []core.Payment {
	seen := make(map[string]struct{}, len(payments))
	for i := range payments {
		ts := payments[i].Time
		if ts == "" {
			continue
		}
		for {
			if _, dup := seen[ts]; !dup {
				break
			}
			bumped := bumpSecond(ts)
			if bumped == ts {
				break
			}
			ts = bumped
		}
		seen[ts] = struct{}{}
		payments[i].Time = ts
	}
	return payments
}

func filterZeroPrice(payments []core.Payment) []core.Payment {
	out := payments[:0]
	for _, p := range payments {
		if p.Price == 0 {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
