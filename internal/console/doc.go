// Package console adapts the engine's input and output capabilities to
// byte streams and terminals.
//
// Input reads one byte per input instruction from an io.Reader and applies
// an end-of-input policy. Output writes one byte per output instruction and
// flushes it immediately. When stdin is a terminal, MakeRaw switches it to
// raw mode so a single key press is delivered as a single byte.
//
// LoadProgram reads program source files, decoding UTF-16 (with BOM) and
// stripping a UTF-8 BOM.
package console
