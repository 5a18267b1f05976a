// Package idhash computes deterministic identifiers for pairs and sessions.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// PairKey computes the deduplication key for a discovered pair.
// Formula: SHA256(chain_id|pair_id), lowercased inputs, hex-encoded (64 chars).
// Two sources reporting the same pair on the same chain collide here by design.
func PairKey(chainID, pairID string) string {
	data := fmt.Sprintf("%s|%s", strings.ToLower(chainID), strings.ToLower(pairID))
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// CandidateID computes a deterministic candidate identifier.
// Formula: SHA256(chain_id|pair_id|source), hex-encoded (64 characters).
func CandidateID(chainID, pairID, source string) string {
	data := fmt.Sprintf("%s|%s|%s", strings.ToLower(chainID), strings.ToLower(pairID), source)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// SessionID computes an identifier for a funnel session started at t.
// Formula: SHA256(start_unix_nano), first 16 hex characters.
func SessionID(t time.Time) string {
	data := fmt.Sprintf("%d", t.UnixNano())
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}
