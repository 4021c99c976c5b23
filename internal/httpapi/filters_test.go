package httpapi

import (
	"net/url"
	"testing"
)

func TestParseFiltersDefaults(t *testing.T) {
	f, err := ParseFilters(url.Values{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Limit != defaultLimit {
		t.Fatalf("expected default limit %d, got %d", defaultLimit, f.Limit)
	}
	if f.AccountID != "" {
		t.Fatalf("expected empty account, got %q", f.AccountID)
	}
}

func TestParseFiltersLimit(t *testing.T) {
	f, err := ParseFilters(url.Values{"limit": {"25"}, "account": {"999"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Limit != 25 || f.AccountID != "999" {
		t.Fatalf("unexpected filters %+v", f)
	}

	f, err = ParseFilters(url.Values{"limit": {"999999"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Limit != maxLimit {
		t.Fatalf("expected cap at %d, got %d", maxLimit, f.Limit)
	}

	if _, err := ParseFilters(url.Values{"limit": {"zero"}}); err == nil {
		t.Fatalf("expected error for non-numeric limit")
	}
	if _, err := ParseFilters(url.Values{"limit": {"-3"}}); err == nil {
		t.Fatalf("expected error for negative limit")
	}
}
