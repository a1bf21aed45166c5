package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tapevm/internal/ir"
)

func symbols(tokens []ir.Token) string {
	var b strings.Builder
	for _, tok := range tokens {
		b.WriteByte(tok.Symbol.Char())
	}
	return b.String()
}

func TestTokenizeKeepsPositions(t *testing.T) {
	tokens := Tokenize("a+ b-\n.")

	require.Len(t, tokens, 3)
	assert.Equal(t, ir.Token{Pos: 1, Symbol: ir.SymInc}, tokens[0])
	assert.Equal(t, ir.Token{Pos: 4, Symbol: ir.SymDec}, tokens[1])
	assert.Equal(t, ir.Token{Pos: 6, Symbol: ir.SymOutput}, tokens[2])
}

func TestTokenizeAllSymbols(t *testing.T) {
	assert.Equal(t, "><+-.,[]", symbols(Tokenize("><+-.,[]")))
}

func TestTokenizeComments(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"comment to end of input", "+# -[]", "+"},
		{"comment ends at newline", "+# -[]\n-", "+-"},
		{"hash inside comment", "+# a # b -\n.", "+."},
		{"multiple comments", "#x+\n+#y-\n-", "+-"},
		{"newline outside comment", "+\n+", "++"},
		{"comment only", "# nothing here", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, symbols(Tokenize(tt.source)))
		})
	}
}

func TestTokenizeNoTokenFromCommentRegion(t *testing.T) {
	source := "++[>+<-]# comment with +-<>[],. inside\n>."
	commentStart := strings.IndexByte(source, '#')
	commentEnd := strings.IndexByte(source, '\n')

	for _, tok := range Tokenize(source) {
		inComment := tok.Pos >= commentStart && tok.Pos < commentEnd
		assert.False(t, inComment, "token %s at %d came from a comment", tok.Symbol, tok.Pos)
	}
}

func TestTokenizeMultibyteText(t *testing.T) {
	source := "héllo + wörld ."
	tokens := Tokenize(source)

	require.Len(t, tokens, 2)
	assert.Equal(t, byte('+'), source[tokens[0].Pos])
	assert.Equal(t, byte('.'), source[tokens[1].Pos])
}

func TestTokenizeUnbalancedIsNotLexicalError(t *testing.T) {
	assert.Equal(t, "]]][", symbols(Tokenize("]]][")))
}
