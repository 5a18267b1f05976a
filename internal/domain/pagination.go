package domain

import "time"

// PaginationResult is the outcome of draining one (source, slice) pair. It is
// the unit of partial failure: a failed slice keeps the records it gathered
// before the error, and never discards sibling slices' work.
type PaginationResult struct {
	SourceName     string
	Slice          TimeSlice
	Records        []CandidateReport
	TotalRecords   int
	TotalPages     int
	TotalRequests  int
	SkippedRecords int // malformed records dropped during parsing
	Success        bool
	ErrorMessage   string
	Duration       time.Duration
}
