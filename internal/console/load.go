package console

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LoadProgram reads the program source at path.
func LoadProgram(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	src, err := DecodeProgram(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return src, nil
}

// DecodeProgram reads source text from r. A UTF-16 BOM selects UTF-16
// decoding; a UTF-8 BOM is dropped; anything else passes through as UTF-8.
//
// Invalid UTF-8 is replaced with U+FFFD. Token positions are byte offsets
// into the decoded text, so they can differ from offsets in the file when
// it held a BOM, UTF-16 or invalid bytes.
func DecodeProgram(r io.Reader) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	b, err := io.ReadAll(transform.NewReader(r, dec))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
