package extract

import (
	"regexp"
	"strconv"
)

var priceRe = regexp.MustCompile(`\$\s*([0-9]+(?:\.[0-9]+)?)`)

// parsePrice pulls the first dollar amount out of text. Zero when no amount
// is present; zero-price records are filtered downstream, never errors.
func parsePrice(text string) float64 {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return v
}

// formatPrice renders an amount the way the synthetic tags expect: no
// trailing zeros, so 5.00 reads "5" and 12.50 reads "12.5".
func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
