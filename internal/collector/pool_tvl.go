package collector

import (
	"fmt"
	"time"

	"dexradar/internal/domain"
)

// PoolTVLAdapter parses Uniswap-v3 style subgraphs: results under "pools"
// with totalValueLockedUSD liquidity.
type PoolTVLAdapter struct{}

const poolTVLQuery = `query NewPools($start: Int!, $end: Int!, $first: Int!, $skip: Int!, $minTVL: String!) {
  pools(
    first: $first
    skip: $skip
    orderBy: createdAtTimestamp
    orderDirection: asc
    where: {createdAtTimestamp_gte: $start, createdAtTimestamp_lte: $end, totalValueLockedUSD_gte: $minTVL}
  ) {
    id
    createdAtTimestamp
    totalValueLockedUSD
    volumeUSD
    token0 { id symbol name }
    token1 { id symbol name }
  }
}`

// ResultField returns "pools".
func (a *PoolTVLAdapter) ResultField() string { return "pools" }

// BuildQuery returns the page query for a pool-TVL source.
func (a *PoolTVLAdapter) BuildQuery(src domain.SourceDescriptor, slice domain.TimeSlice, first, skip int) (string, map[string]any) {
	return poolTVLQuery, map[string]any{
		"start":  slice.Start.Unix(),
		"end":    slice.End.Unix(),
		"first":  first,
		"skip":   skip,
		"minTVL": fmt.Sprintf("%.0f", src.LiquidityFloor),
	}
}

// ParseRecord converts one raw pool record.
func (a *PoolTVLAdapter) ParseRecord(src domain.SourceDescriptor, raw RawRecord, now time.Time) (domain.CandidateReport, error) {
	poolID, err := strField(raw, "id")
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

	tvl, err := numField(raw, "totalValueLockedUSD")
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

	return buildReport(src, poolID, token, tvl, volume, int64(createdSec), now)
}
