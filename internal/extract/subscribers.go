package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/you/fanharvest/internal/core"
)

var subDateRe = regexp.MustCompile(`^[A-Z][a-z]+ \d{1,2}, \d{4}$`)

// Subscribers parses the subscriber list page into normalized rows. Rows
// without a resolvable username are skipped.
func (e *Extractor) Subscribers(doc *goquery.Document) []core.Subscriber {
	if doc == nil {
		return nil
	}
	var out []core.Subscriber
	doc.Find(selSubRow).Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find(selSubName).First().Text())
		if name == "" {
			return
		}

		sub := core.Subscriber{
			UserName: name,
			UserID:   idFromHref(row.Find(selSubLink).First()),
			SubPrice: subscriptionPrice(row.Find(selSubPrice).First().Text()),
		}

		dur := strings.TrimSpace(row.Find(selSubDuration).First().Text())
		if subDateRe.MatchString(dur) {
			if t, err := time.Parse("January 2, 2006", dur); err == nil {
				t = t.UTC()
				sub.SubDate = &t
				dur = ""
			}
		}
		sub.SubDuration = dur

		out = append(out, sub)
	})
	return out
}

// subscriptionPrice normalizes the price cell: "free" means "0.00", anything
// else is the dollar amount rendered to two decimals.
func subscriptionPrice(text string) string {
	t := strings.TrimSpace(text)
	if strings.EqualFold(t, "free") {
		return "0.00"
	}
	t = strings.TrimSpace(strings.TrimPrefix(t, "$"))
	if fields := strings.Fields(t); len(fields) > 0 {
		t = fields[0]
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", v)
}
