package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/you/fanharvest/internal/core"
)

var firstIntRe = regexp.MustCompile(`\d+`)

// Vault extracts the active vault category, nil when no vault container is
// selected on the page.
func (e *Extractor) Vault(doc *goquery.Document) *core.Vault {
	if doc == nil {
		return nil
	}
	active := doc.Find(selVaultActive).First()
	if active.Length() == 0 {
		return nil
	}

	name := strings.TrimSpace(active.Find(selVaultName).First().Text())
	if name == "" {
		name = strings.TrimSpace(active.Text())
	}

	count := 0
	if raw := firstIntRe.FindString(active.Find(selVaultCount).First().Text()); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			count = n
		}
	}

	return &core.Vault{
		AccountID:  ownAccountID(doc),
		Name:       name,
		MediaCount: count,
	}
}
