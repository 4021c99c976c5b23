package extract

import "time"

// Clock supplies the instant and locale zone used to resolve relative dates
// ("Today"/"Yesterday") and am/pm wall clock text. Injected so the
// reconstruction heuristics are deterministic under test.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct{}

func (systemClock) Now() time.Time           { return time.Now() }
func (systemClock) Location() *time.Location { return time.Local }

// SystemClock returns the wall clock in the process-local zone.
func SystemClock() Clock { return systemClock{} }

// FixedClock pins the instant and zone; test helper.
type FixedClock struct {
	Instant time.Time
	Zone    *time.Location
}

func (c FixedClock) Now() time.Time { return c.Instant }

func (c FixedClock) Location() *time.Location {
	if c.Zone == nil {
		return time.UTC
	}
	return c.Zone
}
