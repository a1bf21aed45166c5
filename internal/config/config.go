// Package config loads machine configuration files.
//
// A configuration file sets the tape capacity, the end-of-input policy,
// the step budget and input echo. The format is chosen by extension:
// .cue files are validated against an embedded CUE schema, .toml files
// are read with BurntSushi/toml and .yaml/.yml files with yaml.v3. Unknown
// keys are rejected in every format.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tapevm/internal/console"
	"github.com/roach88/tapevm/internal/engine"
)

//go:embed schema.cue
var schemaCUE string

// Format is a configuration file format.
type Format string

const (
	FormatCUE  Format = "cue"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for files whose extension selects no format.
var ErrUnknownFormat = errors.New("unknown config format")

// Config is the machine configuration.
type Config struct {
	Cells    int    `json:"cells" toml:"cells" yaml:"cells"`
	Growable bool   `json:"growable" toml:"growable" yaml:"growable"`
	EOF      string `json:"eof" toml:"eof" yaml:"eof"`
	MaxSteps int64  `json:"max_steps" toml:"max_steps" yaml:"max_steps"`
	Echo     bool   `json:"echo" toml:"echo" yaml:"echo"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Cells: engine.DefaultCells,
		EOF:   string(console.EOFZero),
	}
}

// Error is a configuration error with an optional source position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsConfigError returns true if err is a *Error.
func IsConfigError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// FormatOf selects the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return FormatCUE, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(data, format, path)
}

// Parse decodes data in the given format. Absent keys keep their defaults.
// filename is used in error positions only.
func Parse(data []byte, format Format, filename string) (Config, error) {
	cfg := Default()

	switch format {
	case FormatCUE:
		if err := parseCUE(data, filename, &cfg); err != nil {
			return Config{}, err
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("parse error in %s: %w", filename, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Config{}, &Error{Field: undecoded[0].String(), Message: "unknown key"}
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document leaves the defaults in place.
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse error in %s: %w", filename, err)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseCUE(data []byte, filename string, cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return formatCUEError(err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	if err := unified.Decode(cfg); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError converts a CUE error to *Error, keeping the first
// position when there is one.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Field: "cue", Message: err.Error()}
	}

	first := errs[0]
	ce := &Error{Field: "cue", Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Cells <= 0 {
		return &Error{Field: "cells", Message: fmt.Sprintf("must be positive, got %d", c.Cells)}
	}
	if _, err := console.ParseEOFPolicy(c.EOF); err != nil {
		return &Error{Field: "eof", Message: err.Error()}
	}
	if c.MaxSteps < 0 {
		return &Error{Field: "max_steps", Message: fmt.Sprintf("must not be negative, got %d", c.MaxSteps)}
	}
	return nil
}

// Capacity returns the tape capacity the configuration selects.
func (c Config) Capacity() engine.Capacity {
	if c.Growable {
		return engine.Growable(c.Cells)
	}
	return engine.Fixed(c.Cells)
}

// EOFPolicy returns the parsed end-of-input policy. Invalid values, which
// Validate rejects, read as EOFZero.
func (c Config) EOFPolicy() console.EOFPolicy {
	p, err := console.ParseEOFPolicy(c.EOF)
	if err != nil {
		return console.EOFZero
	}
	return p
}
