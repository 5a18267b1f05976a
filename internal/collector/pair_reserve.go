package collector

import (
	"fmt"
	"time"

	"dexradar/internal/domain"
)

// PairReserveAdapter parses Uniswap-v2 style subgraphs: results under "pairs"
// with reserveUSD liquidity and BigDecimal values serialized as strings.
type PairReserveAdapter struct{}

const pairReserveQuery = `query NewPairs($start: Int!, $end: Int!, $first: Int!, $skip: Int!, $minReserve: String!) {
  pairs(
    first: $first
    skip: $skip
    orderBy: createdAtTimestamp
    orderDirection: asc
    where: {createdAtTimestamp_gte: $start, createdAtTimestamp_lte: $end, reserveUSD_gte: $minReserve}
  ) {
    id
    createdAtTimestamp
    reserveUSD
    volumeUSD
    token0 { id symbol name }
    token1 { id symbol name }
  }
}`

// ResultField returns "pairs".
func (a *PairReserveAdapter) ResultField() string { return "pairs" }

// BuildQuery returns the page query for a pair-reserve source.
func (a *PairReserveAdapter) BuildQuery(src domain.SourceDescriptor, slice domain.TimeSlice, first, skip int) (string, map[string]any) {
	return pairReserveQuery, map[string]any{
		"start":      slice.Start.Unix(),
		"end":        slice.End.Unix(),
		"first":      first,
		"skip":       skip,
		"minReserve": fmt.Sprintf("%.0f", src.LiquidityFloor),
	}
}

// ParseRecord converts one raw pair record.
func (a *PairReserveAdapter) ParseRecord(src domain.SourceDescriptor, raw RawRecord, now time.Time) (domain.CandidateReport, error) {
	pairID, err := strField(raw, "id")
	if err != nil {
		return domain.CandidateReport{}, err
	}

	t0, err := tokenField(raw, "token0")
	if err != nil {
		return domain.CandidateReport{}, err
	}
	t1, err := tokenField(raw, "token1")
	if err != nil {
		return domain.CandidateReport{}, err
	}
	token, err := pickCandidateToken(t0, t1)
	if err != nil {
		return domain.CandidateReport{}, err
	}

	reserve, err := numField(raw, "reserveUSD")
	if err != nil {
		return domain.CandidateReport{}, err
	}
	volume, err := numField(raw, "volumeUSD")
	if err != nil {
		return domain.CandidateReport{}, err
	}
	createdSec, err := numField(raw, "createdAtTimestamp")
	if err != nil {
		return domain.CandidateReport{}, err
	}

	return buildReport(src, pairID, token, reserve, volume, int64(createdSec), now)
}
