package compiler

import "github.com/roach88/tapevm/internal/ir"

// Tokenize turns source text into the ordered instruction stream.
//
// A '#' outside a comment opens a line comment that ends at the next
// newline. Instruction characters outside comments become tokens carrying
// their byte offset; everything else is discarded. Unmatched brackets are
// not a lexical error. Tokenize never fails.
func Tokenize(source string) []ir.Token {
	tokens := make([]ir.Token, 0, len(source)/2)
	comment := false

	// Byte-wise scan is safe for UTF-8: all instruction characters are
	// ASCII and never appear inside a multi-byte sequence.
	for pos := 0; pos < len(source); pos++ {
		c := source[pos]

		if comment {
			if c == '\n' {
				comment = false
			}
			continue
		}
		if c == ir.CommentChar {
			comment = true
			continue
		}

		if sym, ok := ir.SymbolOf(c); ok {
			tokens = append(tokens, ir.Token{Pos: pos, Symbol: sym})
		}
	}

	return tokens
}
