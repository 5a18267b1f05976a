package domain

import "time"

// TimeSlice is one bounded time window of a pair-age range. Slicing keeps a
// single upstream query small enough that indexers neither time out nor
// truncate the result set.
type TimeSlice struct {
	Index        int     // position in the generated sequence, 0-based
	AgeLowerDays float64 // newer bound, in days before the reference time
	AgeUpperDays float64 // older bound, in days before the reference time
	Start        time.Time
	End          time.Time
}

// Duration returns the wall-clock span covered by the slice.
func (s TimeSlice) Duration() time.Duration {
	return s.End.Sub(s.Start)
}
