package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramHashIncludesPositions(t *testing.T) {
	a := []Token{{Pos: 0, Symbol: SymInc}, {Pos: 1, Symbol: SymOutput}}
	b := []Token{{Pos: 7, Symbol: SymInc}, {Pos: 20, Symbol: SymOutput}}
	same := []Token{{Pos: 0, Symbol: SymInc}, {Pos: 1, Symbol: SymOutput}}

	assert.NotEqual(t, ProgramHash(a), ProgramHash(b))
	assert.Equal(t, ProgramHash(a), ProgramHash(same))
	assert.Len(t, ProgramHash(a), 64, "SHA-256 hex is 64 characters")
}

func TestProgramHashChangesWithCode(t *testing.T) {
	a := []Token{{Symbol: SymInc}}
	b := []Token{{Symbol: SymDec}}
	assert.NotEqual(t, ProgramHash(a), ProgramHash(b))
	assert.NotEqual(t, ProgramHash(nil), ProgramHash(a))
}

func TestTraceHashDeterminism(t *testing.T) {
	steps := []Step{
		{Seq: 1, Index: 0, Pointer: 0, Pos: 0, Symbol: SymInc, Cell: 1},
		{Seq: 2, Index: 1, Pointer: 0, Pos: 1, Symbol: SymOutput, Cell: 1},
	}

	h1, err := TraceHash(steps)
	require.NoError(t, err)
	h2, err := TraceHash(steps)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	steps[1].Cell = 2
	h3, err := TraceHash(steps)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}
