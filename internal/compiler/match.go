package compiler

import "github.com/roach88/tapevm/internal/ir"

// noJump marks a token index that is not a loop delimiter.
const noJump = -1

// JumpTable maps each loop delimiter's token index to its partner's index.
//
// INVARIANT: for every index i holding '[' or ']', Target(Target(i)) == i.
// No other index has an entry. A JumpTable is immutable once Match returns
// it and may be shared freely.
type JumpTable struct {
	targets []int
}

// Target returns the matching delimiter index for i.
// The second result is false when i is not a loop delimiter.
func (jt JumpTable) Target(i int) (int, bool) {
	if i < 0 || i >= len(jt.targets) || jt.targets[i] == noJump {
		return 0, false
	}
	return jt.targets[i], true
}

// Len returns the number of token indices the table covers.
func (jt JumpTable) Len() int {
	return len(jt.targets)
}

// Pairs returns the number of matched bracket pairs.
func (jt JumpTable) Pairs() int {
	n := 0
	for i, t := range jt.targets {
		if t != noJump && t > i {
			n++
		}
	}
	return n
}

// Match builds the jump table for a token stream in one left-to-right scan.
//
// A ']' with no pending '[' fails immediately. Any '[' still pending after
// the scan fails too, reporting the outermost one. Both failures are a
// *SyntaxError wrapping ErrUnbalancedBrackets.
func Match(tokens []ir.Token) (JumpTable, error) {
	targets := make([]int, len(tokens))
	for i := range targets {
		targets[i] = noJump
	}

	var stack []int
	for i, tok := range tokens {
		switch tok.Symbol {
		case ir.SymLoopOpen:
			stack = append(stack, i)
		case ir.SymLoopClose:
			if len(stack) == 0 {
				return JumpTable{}, newUnbalancedError("unmatched ']'", i, tok.Pos)
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			targets[start] = i
			targets[i] = start
		}
	}

	if len(stack) > 0 {
		first := stack[0]
		return JumpTable{}, newUnbalancedError("unmatched '['", first, tokens[first].Pos)
	}

	return JumpTable{targets: targets}, nil
}
