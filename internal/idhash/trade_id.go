package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"crypto-strategy-lab/internal/domain"
)

// ComputeTradeID computes a deterministic trade id using SHA256.
// Formula: SHA256(strategy|symbol|side|entry_time_ms|sequence)
// sequence is the zero-based order in which the run opened the trade.
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(
	strategyName string,
	symbol string,
	side domain.Side,
	entryTimeMs int64,
	sequence int,
) string {
	data := fmt.Sprintf("%s|%s|%s|%d|%d",
		strategyName,
		symbol,
		string(side),
		entryTimeMs,
		sequence,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeParametersID computes a deterministic id for one parameter
// combination of a strategy.
// Formula: SHA256(strategy|k1=v1,k2=v2,...) with keys sorted.
// Returns hex-encoded hash (64 characters).
func ComputeParametersID(strategyName string, params domain.Parameters) string {
	var b strings.Builder
	b.WriteString(strategyName)
	b.WriteByte('|')
	b.WriteString(params.String())

	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}
