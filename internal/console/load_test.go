package console

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProgram(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{"plain", []byte("+[-]."), "+[-]."},
		{"utf8 bom", []byte("\xef\xbb\xbf+."), "+."},
		{"utf16le bom", []byte{0xff, 0xfe, '+', 0, '.', 0}, "+."},
		{"utf16be bom", []byte{0xfe, 0xff, 0, '>', 0, ','}, ">,"},
		{"invalid utf8", []byte("\xff+"), "\uFFFD+"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeProgram(strings.NewReader(string(tt.raw)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echo.bf")
	require.NoError(t, os.WriteFile(path, []byte(",[.,] # cat\n"), 0o644))

	src, err := LoadProgram(path)
	require.NoError(t, err)
	assert.Equal(t, ",[.,] # cat\n", src)

	_, err = LoadProgram(filepath.Join(t.TempDir(), "missing.bf"))
	assert.Error(t, err)
}

func TestMakeRaw_NotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
	tty, err := MakeRaw(f)
	require.NoError(t, err)
	assert.Nil(t, tty)
	assert.NoError(t, tty.Restore())
}
