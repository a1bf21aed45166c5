package ir

import "fmt"

// Symbol is one of the eight instruction kinds of the tape language.
type Symbol uint8

const (
	SymRight     Symbol = iota // '>' move the pointer right
	SymLeft                    // '<' move the pointer left
	SymInc                     // '+' increment the current cell
	SymDec                     // '-' decrement the current cell
	SymOutput                  // '.' write the current cell to the sink
	SymInput                   // ',' read a byte into the current cell
	SymLoopOpen                // '[' jump past the matching ']' if the cell is zero
	SymLoopClose               // ']' jump back to the matching '[' if the cell is non-zero
)

// CommentChar opens a line comment that runs to the next newline.
const CommentChar = '#'

var symbolChars = [...]byte{'>', '<', '+', '-', '.', ',', '[', ']'}

// SymbolOf maps a source character to its instruction kind.
// The second result is false for every character that is not an instruction.
func SymbolOf(c byte) (Symbol, bool) {
	switch c {
	case '>':
		return SymRight, true
	case '<':
		return SymLeft, true
	case '+':
		return SymInc, true
	case '-':
		return SymDec, true
	case '.':
		return SymOutput, true
	case ',':
		return SymInput, true
	case '[':
		return SymLoopOpen, true
	case ']':
		return SymLoopClose, true
	}
	return 0, false
}

// Char returns the source character of the symbol.
func (s Symbol) Char() byte {
	if int(s) < len(symbolChars) {
		return symbolChars[s]
	}
	return '?'
}

// String implements fmt.Stringer.
func (s Symbol) String() string {
	if int(s) < len(symbolChars) {
		return string(symbolChars[s])
	}
	return fmt.Sprintf("Symbol(%d)", uint8(s))
}

// IsBracket reports whether the symbol is a loop delimiter.
func (s Symbol) IsBracket() bool {
	return s == SymLoopOpen || s == SymLoopClose
}

// ParseSymbol is the inverse of String, used when reading stored traces.
func ParseSymbol(s string) (Symbol, error) {
	if len(s) == 1 {
		if sym, ok := SymbolOf(s[0]); ok {
			return sym, nil
		}
	}
	return 0, fmt.Errorf("unknown symbol %q", s)
}

// AllSymbols lists the instruction kinds in declaration order.
func AllSymbols() []Symbol {
	return []Symbol{SymRight, SymLeft, SymInc, SymDec, SymOutput, SymInput, SymLoopOpen, SymLoopClose}
}

// MarshalText encodes the symbol as its source character.
func (s Symbol) MarshalText() ([]byte, error) {
	if int(s) >= len(symbolChars) {
		return nil, fmt.Errorf("invalid symbol %d", uint8(s))
	}
	return []byte{symbolChars[s]}, nil
}

// UnmarshalText decodes a symbol from its source character.
func (s *Symbol) UnmarshalText(text []byte) error {
	sym, err := ParseSymbol(string(text))
	if err != nil {
		return err
	}
	*s = sym
	return nil
}
