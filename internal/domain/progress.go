package domain

import "time"

// ProgressSink receives human-readable progress notifications during a run.
// The engine and the POWER client call it inline, so implementations should
// return quickly. Callers needing silence pass NopSink.
type ProgressSink interface {
	// BlockStarted is called once per block fetch with the inclusive
	// date range about to be requested.
	BlockStarted(start, end time.Time)

	// FetchRetried is called after a transient fetch failure when another
	// attempt will be made.
	FetchRetried(attempt, maxAttempts int, cause error)
}

// NopSink discards all progress notifications.
type NopSink struct{}

func (NopSink) BlockStarted(_, _ time.Time)    {}
func (NopSink) FetchRetried(_, _ int, _ error) {}
