package compiler

import (
	"errors"

	"github.com/roach88/tapevm/internal/ir"
)

// Program is a compiled instruction stream and its jump table.
//
// A Program is immutable and safe to share between goroutines. Any number
// of engines may run the same Program at once, each with its own tape.
type Program struct {
	tokens []ir.Token
	jumps  JumpTable
	hash   string
}

// Compile tokenizes source and matches its brackets.
// On unbalanced brackets it returns a *SyntaxError and no Program.
func Compile(source string) (*Program, error) {
	tokens := Tokenize(source)

	jumps, err := Match(tokens)
	if err != nil {
		var se *SyntaxError
		if errors.As(err, &se) {
			se.locate(source)
		}
		return nil, err
	}

	return &Program{
		tokens: tokens,
		jumps:  jumps,
		hash:   ir.ProgramHash(tokens),
	}, nil
}

// MustCompile is like Compile but panics on error.
// Intended for tests and fixed programs.
func MustCompile(source string) *Program {
	p, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.tokens)
}

// Token returns the instruction at index i.
func (p *Program) Token(i int) ir.Token {
	return p.tokens[i]
}

// Tokens returns a copy of the instruction stream.
func (p *Program) Tokens() []ir.Token {
	out := make([]ir.Token, len(p.tokens))
	copy(out, p.tokens)
	return out
}

// Jump returns the partner index of the loop delimiter at i.
func (p *Program) Jump(i int) (int, bool) {
	return p.jumps.Target(i)
}

// Jumps returns the program's jump table.
func (p *Program) Jumps() JumpTable {
	return p.jumps
}

// Hash returns the content-addressed program ID.
func (p *Program) Hash() string {
	return p.hash
}

// Code returns the instruction stream as text with comments and
// non-instruction characters removed.
func (p *Program) Code() string {
	b := make([]byte, len(p.tokens))
	for i, tok := range p.tokens {
		b[i] = tok.Symbol.Char()
	}
	return string(b)
}
