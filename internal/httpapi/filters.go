package httpapi

import (
	"errors"
	"net/url"
	"strconv"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Filters captures the parsed query parameters for record lookups.
type Filters struct {
	AccountID string
	Limit     int
}

// ParseFilters parses query parameters into a Filters struct.
func ParseFilters(values url.Values) (Filters, error) {
	f := Filters{Limit: defaultLimit}

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Filters{}, errors.New("limit must be a positive integer")
		}
		if n > maxLimit {
			n = maxLimit
		}
		f.Limit = n
	}

	f.AccountID = values.Get("account")
	return f, nil
}
