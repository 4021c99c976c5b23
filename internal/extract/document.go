package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

// ParseDocument parses serialized markup into a queryable tree. An empty or
// whitespace snapshot parses to an empty document rather than failing; the
// caller treats the absence of expected containers as "no data yet".
func ParseDocument(markup string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, errors.Wrap(err, "parse markup")
	}
	return doc, nil
}
