// Package collector drains paginated subgraph result sets, one (source, slice)
// pair at a time, through schema-specific adapters.
package collector

import (
	"fmt"
	"strconv"
	"time"

	"dexradar/internal/addrcheck"
	"dexradar/internal/apierr"
	"dexradar/internal/domain"
)

// RawRecord is one untyped record from a subgraph page.
type RawRecord map[string]any

// Adapter is the capability boundary between the pagination loop and a source
// schema. New schemas plug in here; the loop never branches on schema tags.
type Adapter interface {
	// ResultField names the list field in the subgraph data payload.
	ResultField() string

	// BuildQuery returns the GraphQL query and variables for one page of the
	// given slice.
	BuildQuery(src domain.SourceDescriptor, slice domain.TimeSlice, first, skip int) (string, map[string]any)

	// ParseRecord converts one raw record into a CandidateReport. Malformed
	// records return a *apierr.DataError and are skipped by the loop.
	ParseRecord(src domain.SourceDescriptor, raw RawRecord, now time.Time) (domain.CandidateReport, error)
}

// Registry maps schema variants to adapters. Immutable after construction from
// the collector's point of view.
type Registry struct {
	adapters map[domain.SchemaVariant]Adapter
}

// NewRegistry creates a registry with the built-in adapters registered.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[domain.SchemaVariant]Adapter)}
	r.Register(domain.SchemaPairReserve, &PairReserveAdapter{})
	r.Register(domain.SchemaPoolTVL, &PoolTVLAdapter{})
	return r
}

// Register adds or replaces the adapter for a schema variant.
func (r *Registry) Register(v domain.SchemaVariant, a Adapter) {
	r.adapters[v] = a
}

// Lookup returns the adapter for a schema variant.
func (r *Registry) Lookup(v domain.SchemaVariant) (Adapter, error) {
	a, ok := r.adapters[v]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for schema variant %q", v)
	}
	return a, nil
}

// quoteSymbols are tokens that act as the quote side of a pair; the candidate
// token is the other side.
var quoteSymbols = map[string]bool{
	"WETH": true, "WBNB": true, "WMATIC": true, "WAVAX": true, "SOL": true,
	"WSOL": true, "USDC": true, "USDT": true, "DAI": true, "BUSD": true,
}

// tokenRef is the token0/token1 shape shared by subgraph schemas.
type tokenRef struct {
	Address string
	Symbol  string
	Name    string
}

// pickCandidateToken selects the non-quote side of the pair. When both sides
// are quote tokens the pair carries no candidate and a DataError is returned.
func pickCandidateToken(t0, t1 tokenRef) (tokenRef, error) {
	q0, q1 := quoteSymbols[t0.Symbol], quoteSymbols[t1.Symbol]
	switch {
	case q0 && q1:
		return tokenRef{}, &apierr.DataError{Field: "token0/token1", Err: fmt.Errorf("both sides are quote tokens (%s/%s)", t0.Symbol, t1.Symbol)}
	case q0:
		return t1, nil
	default:
		return t0, nil
	}
}

// strField extracts a string field from a raw record.
func strField(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok {
		return "", &apierr.DataError{Field: key, Err: fmt.Errorf("missing")}
	}
	s, ok := v.(string)
	if !ok {
		return "", &apierr.DataError{Field: key, Err: fmt.Errorf("expected string, got %T", v)}
	}
	return s, nil
}

// numField extracts a numeric field. Subgraphs serialize BigDecimal values as
// strings, so both JSON numbers and numeric strings are accepted.
func numField(raw map[string]any, key string) (float64, error) {
	v, ok := raw[key]
	if !ok {
		return 0, &apierr.DataError{Field: key, Err: fmt.Errorf("missing")}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, &apierr.DataError{Field: key, Err: err}
		}
		return f, nil
	default:
		return 0, &apierr.DataError{Field: key, Err: fmt.Errorf("expected number, got %T", v)}
	}
}

// tokenField extracts a nested token0/token1 object.
func tokenField(raw map[string]any, key string) (tokenRef, error) {
	v, ok := raw[key]
	if !ok {
		return tokenRef{}, &apierr.DataError{Field: key, Err: fmt.Errorf("missing")}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return tokenRef{}, &apierr.DataError{Field: key, Err: fmt.Errorf("expected object, got %T", v)}
	}

	addr, err := strField(obj, "id")
	if err != nil {
		return tokenRef{}, err
	}
	symbol, _ := strField(obj, "symbol")
	name, _ := strField(obj, "name")
	return tokenRef{Address: addr, Symbol: symbol, Name: name}, nil
}

// buildReport assembles the CandidateReport shared by both adapters.
func buildReport(src domain.SourceDescriptor, pairID string, token tokenRef, liquidityUSD, volumeUSD float64, createdSec int64, now time.Time) (domain.CandidateReport, error) {
	if !addrcheck.ValidForChain(src.ChainID, token.Address) {
		return domain.CandidateReport{}, &apierr.DataError{
			Field: "token.id",
			Err:   fmt.Errorf("address %q not valid for chain %s", token.Address, src.ChainID),
		}
	}

	createdAt := createdSec * 1000
	age := now.Sub(time.UnixMilli(createdAt)).Minutes()
	if age < 0 {
		age = 0
	}

	return domain.CandidateReport{
		PairID:       pairID,
		ChainID:      src.ChainID,
		TokenAddress: token.Address,
		TokenSymbol:  token.Symbol,
		TokenName:    token.Name,
		LiquidityUSD: liquidityUSD,
		Volume24hUSD: volumeUSD,
		CreatedAt:    createdAt,
		AgeMinutes:   age,
		Source:       src.Name,
	}, nil
}
