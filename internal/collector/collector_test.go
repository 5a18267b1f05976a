package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexradar/internal/apierr"
	"dexradar/internal/domain"
)

var testSource = domain.SourceDescriptor{
	Name:           "pancake-v2",
	EndpointID:     "pancake-v2-bsc",
	Schema:         domain.SchemaPairReserve,
	ChainID:        "bsc",
	LiquidityFloor: 10000,
	Active:         true,
}

func testSlice() domain.TimeSlice {
	ref := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return domain.TimeSlice{
		Index:        0,
		AgeLowerDays: 0,
		AgeUpperDays: 1,
		Start:        ref.Add(-24 * time.Hour),
		End:          ref,
	}
}

// pairJSON builds one valid raw pair record.
func pairJSON(i int) string {
	return fmt.Sprintf(`{
		"id": "0x%040x",
		"createdAtTimestamp": "1748500000",
		"reserveUSD": "15000.5",
		"volumeUSD": "42000",
		"token0": {"id": "0x%040x", "symbol": "TKN%d", "name": "Token %d"},
		"token1": {"id": "0x%040x", "symbol": "WBNB", "name": "Wrapped BNB"}
	}`, i, 1000+i, i, i, 2000+i)
}

func pageJSON(field string, records ...string) []byte {
	body := "["
	for i, r := range records {
		if i > 0 {
			body += ","
		}
		body += r
	}
	body += "]"
	return []byte(fmt.Sprintf(`{"%s": %s}`, field, body))
}

// scriptedQuerier returns one canned response (or error) per call.
type scriptedQuerier struct {
	responses []any // []byte page payload or error
	calls     int
	onCall    func(call int)
}

func (q *scriptedQuerier) Query(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	call := q.calls
	q.calls++
	if q.onCall != nil {
		q.onCall(call)
	}
	if call >= len(q.responses) {
		return nil, fmt.Errorf("unexpected call %d", call)
	}
	switch v := q.responses[call].(type) {
	case error:
		return nil, v
	case []byte:
		return v, nil
	default:
		panic("bad script entry")
	}
}

func newTestCollector(q Querier, pageSize, maxPages int) *Collector {
	return New(Options{
		Queriers:  func(domain.SourceDescriptor) (Querier, error) { return q, nil },
		PageSize:  pageSize,
		MaxPages:  maxPages,
		PageDelay: time.Millisecond,
	})
}

func TestCollect_FullPageThenEmptyPage(t *testing.T) {
	q := &scriptedQuerier{responses: []any{
		pageJSON("pairs", pairJSON(1), pairJSON(2)),
		pageJSON("pairs"),
	}}
	c := newTestCollector(q, 2, 10)

	result := c.Collect(context.Background(), testSource, testSlice())

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalRequests)
	assert.Equal(t, 2, result.TotalPages)
	assert.Equal(t, 2, result.TotalRecords)
	assert.Empty(t, result.ErrorMessage)
}

func TestCollect_ShortPageIsLastPage(t *testing.T) {
	q := &scriptedQuerier{responses: []any{
		pageJSON("pairs", pairJSON(1)),
	}}
	c := newTestCollector(q, 2, 10)

	result := c.Collect(context.Background(), testSource, testSlice())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalRequests)
	assert.Equal(t, 1, result.TotalRecords)
	assert.Equal(t, "pancake-v2", result.Records[0].Source)
	assert.Equal(t, "bsc", result.Records[0].ChainID)
	assert.Equal(t, "TKN1", result.Records[0].TokenSymbol)
	assert.Equal(t, 15000.5, result.Records[0].LiquidityUSD)
}

func TestCollect_TransportErrorPreservesAccumulated(t *testing.T) {
	q := &scriptedQuerier{responses: []any{
		pageJSON("pairs", pairJSON(1), pairJSON(2)),
		&apierr.TransportError{Err: errors.New("connection reset")},
	}}
	c := newTestCollector(q, 2, 10)

	result := c.Collect(context.Background(), testSource, testSlice())

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "connection reset")
	assert.Equal(t, 2, result.TotalRecords, "records from earlier pages must survive the failure")
	assert.Equal(t, 2, result.TotalRequests)
}

func TestCollect_MaxPagesCeiling(t *testing.T) {
	q := &scriptedQuerier{responses: []any{
		pageJSON("pairs", pairJSON(1), pairJSON(2)),
		pageJSON("pairs", pairJSON(3), pairJSON(4)),
		pageJSON("pairs", pairJSON(5), pairJSON(6)),
	}}
	c := newTestCollector(q, 2, 2)

	result := c.Collect(context.Background(), testSource, testSlice())

	assert.True(t, result.Success, "hitting the ceiling truncates, it does not fail")
	assert.Equal(t, 2, result.TotalPages)
	assert.Equal(t, 4, result.TotalRecords)
}

func TestCollect_MalformedRecordSkipped(t *testing.T) {
	bad := `{"id": "0xdead", "createdAtTimestamp": "not-a-number"}`
	q := &scriptedQuerier{responses: []any{
		pageJSON("pairs", pairJSON(1), bad),
	}}
	c := newTestCollector(q, 3, 10)

	result := c.Collect(context.Background(), testSource, testSlice())

	assert.True(t, result.Success, "a malformed record never aborts the page")
	assert.Equal(t, 1, result.TotalRecords)
	assert.Equal(t, 1, result.SkippedRecords)
}

func TestCollect_MissingResultFieldIsProtocolFailure(t *testing.T) {
	q := &scriptedQuerier{responses: []any{
		[]byte(`{"pools": []}`), // pair-reserve adapter expects "pairs"
	}}
	c := newTestCollector(q, 2, 10)

	result := c.Collect(context.Background(), testSource, testSlice())

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, `missing result field "pairs"`)
}

func TestCollect_Idempotent(t *testing.T) {
	script := func() *scriptedQuerier {
		return &scriptedQuerier{responses: []any{
			pageJSON("pairs", pairJSON(1), pairJSON(2)),
			pageJSON("pairs", pairJSON(3)),
		}}
	}

	c1 := newTestCollector(script(), 2, 10)
	c2 := newTestCollector(script(), 2, 10)

	r1 := c1.Collect(context.Background(), testSource, testSlice())
	r2 := c2.Collect(context.Background(), testSource, testSlice())

	require.True(t, r1.Success)
	require.True(t, r2.Success)
	assert.Equal(t, r1.TotalRecords, r2.TotalRecords)
	assert.Equal(t, r1.TotalRequests, r2.TotalRequests)
}

func TestCollect_CancellationKeepsAccumulated(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	q := &scriptedQuerier{
		responses: []any{
			pageJSON("pairs", pairJSON(1), pairJSON(2)),
			pageJSON("pairs", pairJSON(3), pairJSON(4)),
		},
		onCall: func(call int) {
			if call == 0 {
				cancel() // abort while the first page is in flight
			}
		},
	}
	c := newTestCollector(q, 2, 10)

	result := c.Collect(ctx, testSource, testSlice())

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.TotalRecords, "cancellation must return what was accumulated")
}

func TestCollect_PoolTVLSchema(t *testing.T) {
	src := testSource
	src.Name = "uni-v3"
	src.Schema = domain.SchemaPoolTVL

	record := fmt.Sprintf(`{
		"id": "0x%040x",
		"createdAtTimestamp": 1748500000,
		"totalValueLockedUSD": "98765",
		"volumeUSD": "1234",
		"token0": {"id": "0x%040x", "symbol": "USDC", "name": "USD Coin"},
		"token1": {"id": "0x%040x", "symbol": "NEW", "name": "New Token"}
	}`, 7, 8, 9)

	q := &scriptedQuerier{responses: []any{pageJSON("pools", record)}}
	c := newTestCollector(q, 2, 10)

	result := c.Collect(context.Background(), src, testSlice())

	require.True(t, result.Success, result.ErrorMessage)
	require.Equal(t, 1, result.TotalRecords)
	assert.Equal(t, "NEW", result.Records[0].TokenSymbol, "quote side must not be picked as candidate")
	assert.Equal(t, 98765.0, result.Records[0].LiquidityUSD)
}

func TestCollect_UnknownSchemaFails(t *testing.T) {
	src := testSource
	src.Schema = "csv-dump"

	c := newTestCollector(&scriptedQuerier{}, 2, 10)
	result := c.Collect(context.Background(), src, testSlice())

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "no adapter registered")
}
