// Package timeslice generates ordered, non-overlapping time windows covering
// a pair-age range. Queries scoped to one slice stay within indexer limits.
package timeslice

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"dexradar/internal/domain"
)

// ContiguityTolerance is the maximum slice-to-slice gap treated as contiguous.
// Sub-second gaps from clock skew are not worth failing a discovery run over.
const ContiguityTolerance = time.Second

const day = 24 * time.Hour

// Option configures slice generation.
type Option func(*settings)

type settings struct {
	logger zerolog.Logger
}

// WithLogger routes generation warnings to l.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Generate produces ordered slices covering [minAgeDays, maxAgeDays], stepping
// by sliceDays. The final slice is clipped when the range does not divide
// evenly; that is logged as a warning, never an error. Slices are ordered by
// age ascending, i.e. newest first.
func Generate(minAgeDays, maxAgeDays, sliceDays float64, reference time.Time, opts ...Option) ([]domain.TimeSlice, error) {
	cfg := settings{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if minAgeDays < 0 {
		return nil, fmt.Errorf("min age %.2f must be >= 0", minAgeDays)
	}
	if maxAgeDays <= minAgeDays {
		return nil, fmt.Errorf("max age %.2f must exceed min age %.2f", maxAgeDays, minAgeDays)
	}
	if sliceDays <= 0 {
		return nil, fmt.Errorf("slice duration %.2f must be positive", sliceDays)
	}
	if reference.IsZero() {
		reference = time.Now().UTC()
	}

	// Tiny epsilon guards against a spurious final sliver from float stepping.
	const eps = 1e-9

	var slices []domain.TimeSlice
	for lower := minAgeDays; lower < maxAgeDays-eps; lower += sliceDays {
		upper := lower + sliceDays
		if upper > maxAgeDays {
			cfg.logger.Warn().
				Float64("slice_days", sliceDays).
				Float64("clipped_upper", maxAgeDays).
				Msg("age range does not divide evenly, clipping final slice")
			upper = maxAgeDays
		}

		slices = append(slices, domain.TimeSlice{
			Index:        len(slices),
			AgeLowerDays: lower,
			AgeUpperDays: upper,
			Start:        reference.Add(-durationDays(upper)),
			End:          reference.Add(-durationDays(lower)),
		})
	}

	return slices, nil
}

// Validate checks slice invariants: strictly increasing age order, start < end
// per slice, and slice-to-slice contiguity within ContiguityTolerance. Gaps
// beyond tolerance are returned as warnings, not errors; only ordering and
// bound violations are fatal.
func Validate(slices []domain.TimeSlice) ([]string, error) {
	var warnings []string

	for i, s := range slices {
		if !s.Start.Before(s.End) {
			return warnings, fmt.Errorf("slice %d: start %v not before end %v", i, s.Start, s.End)
		}
		if i == 0 {
			continue
		}
		prev := slices[i-1]
		if s.AgeLowerDays < prev.AgeUpperDays-1e-9 {
			return warnings, fmt.Errorf("slice %d overlaps slice %d", i, i-1)
		}
		// This slice is older, so its End should meet the previous Start.
		gap := prev.Start.Sub(s.End)
		if gap < 0 {
			gap = -gap
		}
		if gap > ContiguityTolerance {
			warnings = append(warnings, fmt.Sprintf("gap of %v between slice %d and %d", gap, i-1, i))
		}
	}

	return warnings, nil
}

// NewestFirst orders slices youngest age first (the generation order).
// Discovery processes newest slices first since active pairs cluster there.
func NewestFirst(slices []domain.TimeSlice) {
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].AgeLowerDays < slices[j].AgeLowerDays
	})
}

// OldestFirst orders slices oldest age first.
func OldestFirst(slices []domain.TimeSlice) {
	sort.SliceStable(slices, func(i, j int) bool {
		return slices[i].AgeLowerDays > slices[j].AgeLowerDays
	})
}

// TotalCoverage returns the summed age span of the slices in days.
func TotalCoverage(slices []domain.TimeSlice) float64 {
	var total float64
	for _, s := range slices {
		total += s.AgeUpperDays - s.AgeLowerDays
	}
	return total
}

func durationDays(d float64) time.Duration {
	return time.Duration(math.Round(d * float64(day)))
}
