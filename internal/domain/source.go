package domain

// SchemaVariant selects the parsing adapter for a data source.
type SchemaVariant string

const (
	// SchemaPairReserve is the Uniswap-v2 style subgraph schema: results under
	// a "pairs" field with reserveUSD liquidity.
	SchemaPairReserve SchemaVariant = "pair-reserve"

	// SchemaPoolTVL is the Uniswap-v3 style subgraph schema: results under a
	// "pools" field with totalValueLockedUSD liquidity.
	SchemaPoolTVL SchemaVariant = "pool-tvl"
)

// IsValid checks if the schema variant is a known value.
func (v SchemaVariant) IsValid() bool {
	return v == SchemaPairReserve || v == SchemaPoolTVL
}

// SourceDescriptor describes one subgraph data source. Immutable after
// construction; the adapter registry owns the mapping from SchemaVariant to
// parsing behavior.
type SourceDescriptor struct {
	Name           string
	EndpointID     string
	Schema         SchemaVariant
	ChainID        string
	LiquidityFloor float64 // minimum pool liquidity in USD included in queries
	Active         bool
	Priority       int // lower runs first
}
