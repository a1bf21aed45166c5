package compiler

import "github.com/roach88/tapevm/internal/ir"

// Stats summarizes a compiled program.
type Stats struct {
	Hash       string         `json:"hash"`
	Tokens     int            `json:"tokens"`
	Loops      int            `json:"loops"`
	MaxDepth   int            `json:"max_depth"`
	BySymbol   map[string]int `json:"by_symbol"`
	ReadsInput bool           `json:"reads_input"`
}

// Analyze computes Stats for p.
func Analyze(p *Program) Stats {
	st := Stats{
		Hash:     p.hash,
		Tokens:   len(p.tokens),
		Loops:    p.jumps.Pairs(),
		BySymbol: make(map[string]int),
	}

	depth := 0
	for _, tok := range p.tokens {
		st.BySymbol[tok.Symbol.String()]++
		switch tok.Symbol {
		case ir.SymLoopOpen:
			depth++
			if depth > st.MaxDepth {
				st.MaxDepth = depth
			}
		case ir.SymLoopClose:
			depth--
		case ir.SymInput:
			st.ReadsInput = true
		}
	}

	return st
}
