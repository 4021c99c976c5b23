package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// isoMillis is the wire format for every timestamp the extractors emit;
// rendered from UTC it reads "2024-04-25T06:45:00.000Z".
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var yearRe = regexp.MustCompile(`(?:19|20)\d{2}`)

// Timestamp reconstruction is a fixed pipeline of small pure steps:
// resolve-year, resolve-date, resolve-time, combine, parse-or-empty. The page
// scatters these fragments across a timeline title attribute and (possibly
// hidden) sibling time nodes, in locale-dependent text.

// resolveYear returns the 4-digit year embedded in the timeline title, else
// the clock's current year.
func resolveYear(title string, clk Clock) string {
	if y := yearRe.FindString(title); y != "" {
		return y
	}
	return clk.Now().In(clk.Location()).Format("2006")
}

// resolveDate turns the timeline title into a month-day fragment. The
// literals "Today" and "Yesterday" resolve against the clock's local date;
// any embedded year travels separately through resolveYear.
func resolveDate(title string, clk Clock) string {
	t := strings.TrimSpace(title)
	switch strings.ToLower(t) {
	case "today":
		return clk.Now().In(clk.Location()).Format("Jan 2")
	case "yesterday":
		return clk.Now().In(clk.Location()).AddDate(0, 0, -1).Format("Jan 2")
	}
	t = yearRe.ReplaceAllString(t, "")
	t = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), ","))
	return t
}

// resolveNodeTime returns the visible wall-clock text for a bubble or
// section. When the node's own time carries the hidden marker, the walk skips
// up to three consecutive hidden-time siblings and borrows from the first
// non-hidden time beyond them.
func resolveNodeTime(sel *goquery.Selection) string {
	own := sel.Find(selMessageTime).First()
	if own.Length() > 0 && !own.HasClass(classTimeHidden) {
		return strings.TrimSpace(own.Text())
	}
	hidden := 0
	for next := sel.Next(); next.Length() > 0; next = next.Next() {
		t := next.Find(selMessageTime).First()
		if next.Is(selMessageTime) {
			t = next
		}
		if t.Length() == 0 {
			continue
		}
		if !t.HasClass(classTimeHidden) {
			return strings.TrimSpace(t.Text())
		}
		hidden++
		if hidden > 3 {
			break
		}
	}
	return ""
}

var timestampLayouts = []string{
	"Jan 2 2006 3:04 pm",
	"Jan 2, 2006 3:04 pm",
	"January 2 2006 3:04 pm",
	"January 2, 2006 3:04 pm",
	"Jan 2 2006 3 pm",
	"January 2 2006 3 pm",
}

// combineTimestamp assembles "<date> <year> <time>" and parses it in the
// clock's zone, emitting UTC isoMillis. Empty string on any failed parse;
// a missing fragment never aborts the surrounding extraction.
func combineTimestamp(dateText, year, timeText string, clk Clock) string {
	dateText = strings.TrimSpace(dateText)
	// The page is inconsistent about meridiem casing; the layouts are not.
	timeText = strings.ToLower(strings.TrimSpace(timeText))
	if dateText == "" || timeText == "" {
		return ""
	}
	raw := strings.Join(strings.Fields(dateText+" "+year+" "+timeText), " ")
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, clk.Location()); err == nil {
			return t.UTC().Format(isoMillis)
		}
	}
	return ""
}

// bumpSecond shifts an isoMillis timestamp forward one whole second. Used to
// break per-pass collisions; returns ts unchanged when it does not parse.
func bumpSecond(ts string) string {
	t, err := time.Parse(isoMillis, ts)
	if err != nil {
		return ts
	}
	return t.Add(time.Second).UTC().Format(isoMillis)
}
