package datamodule

import "time"

// DefaultRefreshTime is the staleness window used when none is configured.
const DefaultRefreshTime = 60 * time.Second

// ShouldFetch reports whether a read is warranted for state s at time now
// given the refresh window. It is pure and has no side effects.
//
// A module that is loading or modifying never fetches. A module with no
// data that has never been updated always fetches. Otherwise it fetches
// once window has elapsed since LastUpdated; a zero window always fetches.
func ShouldFetch(s State, now time.Time, window time.Duration) bool {
	return decideFetch(
		s.IsLoading,
		s.IsModifying,
		s.Data.IsEmpty(),
		s.LastUpdated.IsZero(),
		now.Sub(s.LastUpdated) >= window,
	)
}

func decideFetch(loading, modifying, empty, neverUpdated, elapsed bool) bool {
	switch {
	case loading || modifying:
		return false
	case empty && neverUpdated:
		return true
	default:
		return elapsed
	}
}
