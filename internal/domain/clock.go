package domain

import "github.com/jonboulle/clockwork"

// clock is the package-level time source. Normalization falls back to "now"
// for unparseable dates and the predictor stamps forecast hours from it, so
// tests freeze it via SetClock for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the package time source. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
