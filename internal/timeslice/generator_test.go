package timeslice

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testReference = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestGenerate_EvenDivision(t *testing.T) {
	slices, err := Generate(30, 90, 10, testReference)
	require.NoError(t, err)
	require.Len(t, slices, 6)

	// First slice covers ages 30-40 days.
	assert.Equal(t, 0, slices[0].Index)
	assert.Equal(t, 30.0, slices[0].AgeLowerDays)
	assert.Equal(t, 40.0, slices[0].AgeUpperDays)
	assert.Equal(t, testReference.Add(-40*24*time.Hour), slices[0].Start)
	assert.Equal(t, testReference.Add(-30*24*time.Hour), slices[0].End)

	// Last slice reaches max age exactly.
	assert.Equal(t, 90.0, slices[5].AgeUpperDays)

	warnings, err := Validate(slices)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestGenerate_UnevenDivisionClipsFinalSlice(t *testing.T) {
	slices, err := Generate(0, 25, 10, testReference)
	require.NoError(t, err)
	require.Len(t, slices, 3)

	assert.Equal(t, 20.0, slices[2].AgeLowerDays)
	assert.Equal(t, 25.0, slices[2].AgeUpperDays, "final slice must be clipped to max age")

	warnings, err := Validate(slices)
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestGenerate_ClippingWarnsOnInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	slices, err := Generate(0, 25, 10, testReference, WithLogger(logger))
	require.NoError(t, err)
	require.Len(t, slices, 3)
	assert.Contains(t, buf.String(), "clipping")

	buf.Reset()
	_, err = Generate(30, 90, 10, testReference, WithLogger(logger))
	require.NoError(t, err)
	assert.Empty(t, buf.String(), "even division must not warn")
}

func TestGenerate_CoverageEqualsRange(t *testing.T) {
	cases := []struct {
		min, max, dur float64
	}{
		{30, 90, 10},
		{0, 7, 1},
		{1, 10, 2.5},
		{5, 33, 7},
	}

	for _, c := range cases {
		slices, err := Generate(c.min, c.max, c.dur, testReference)
		require.NoError(t, err)
		assert.InDelta(t, c.max-c.min, TotalCoverage(slices), 1e-6,
			"union of slices must cover the full range for (%v,%v,%v)", c.min, c.max, c.dur)

		_, err = Validate(slices)
		require.NoError(t, err)
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	_, err := Generate(90, 30, 10, testReference)
	require.Error(t, err)

	_, err = Generate(30, 90, 0, testReference)
	require.Error(t, err)

	_, err = Generate(-1, 90, 10, testReference)
	require.Error(t, err)
}

func TestValidate_DetectsOverlap(t *testing.T) {
	slices, err := Generate(30, 60, 10, testReference)
	require.NoError(t, err)

	// Force an overlap by widening the second slice's age bounds.
	slices[1].AgeLowerDays = 35
	slices[1].End = testReference.Add(-35 * 24 * time.Hour)

	_, err = Validate(slices)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestValidate_GapIsWarningNotError(t *testing.T) {
	slices, err := Generate(30, 60, 10, testReference)
	require.NoError(t, err)

	// Introduce a 5s gap between slice 0 and 1; stays within age ordering.
	slices[1].End = slices[1].End.Add(-5 * time.Second)

	warnings, err := Validate(slices)
	require.NoError(t, err, "gaps beyond tolerance warn, they do not fail")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "gap")
}

func TestOrderingHelpers(t *testing.T) {
	slices, err := Generate(30, 60, 10, testReference)
	require.NoError(t, err)

	OldestFirst(slices)
	assert.Equal(t, 50.0, slices[0].AgeLowerDays)

	NewestFirst(slices)
	assert.Equal(t, 30.0, slices[0].AgeLowerDays)
}
