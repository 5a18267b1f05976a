// Package addrcheck validates token addresses per chain family.
package addrcheck

import (
	"strings"

	"github.com/mr-tron/base58"
)

// IsEVMAddress reports whether s looks like a 20-byte hex EVM address.
func IsEVMAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// IsSolanaAddress reports whether s decodes as a 32-byte base58 public key.
func IsSolanaAddress(s string) bool {
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(raw) == 32
}

// solanaChains lists chain IDs whose addresses are base58 public keys.
var solanaChains = map[string]bool{
	"solana": true,
}

// ValidForChain reports whether address is plausible for the given chain ID.
// Unknown chains fall back to the EVM check, the dominant family across
// screener APIs.
func ValidForChain(chainID, address string) bool {
	if solanaChains[strings.ToLower(chainID)] {
		return IsSolanaAddress(address)
	}
	return IsEVMAddress(address)
}
