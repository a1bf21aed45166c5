package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the hashed layout to change later.
const (
	DomainProgram = "tapevm/program/v1"
	DomainTrace   = "tapevm/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramHash computes the content-addressed ID of a token stream.
//
// Each token contributes its source offset and its symbol. Recorded steps
// carry those offsets, so two layouts of the same code must not share an ID.
func ProgramHash(tokens []Token) string {
	code := make([]byte, 0, len(tokens)*3)
	for _, tok := range tokens {
		code = binary.AppendUvarint(code, uint64(tok.Pos))
		code = append(code, tok.Symbol.Char())
	}
	return hashWithDomain(DomainProgram, code)
}

// TraceHash computes a digest over a sequence of step records.
// Replays compare trace hashes instead of whole traces.
func TraceHash(steps []Step) (string, error) {
	list := make([]any, len(steps))
	for i, s := range steps {
		list[i] = s.Object()
	}
	canonical, err := MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("TraceHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}
