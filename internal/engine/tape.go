package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultCells is the tape length used when no capacity is configured.
const DefaultCells = 30000

// ErrInvalidCapacity is returned for a capacity with a non-positive size.
var ErrInvalidCapacity = errors.New("invalid tape capacity")

// CapacityMode selects how a tape treats its right edge.
type CapacityMode uint8

// The zero mode is reserved for the zero Capacity, so an explicit Fixed(0)
// is still rejected.
const (
	// CapacityFixed keeps the tape length constant; moving past the end fails.
	CapacityFixed CapacityMode = iota + 1
	// CapacityGrowable appends a zero cell when the pointer moves past the end.
	CapacityGrowable
)

// Capacity is the tape allocation policy of an engine.
// The zero value means Fixed(DefaultCells).
type Capacity struct {
	Mode  CapacityMode
	Cells int // fixed length, or initial length when growable
}

// Fixed returns a capacity of exactly n cells.
func Fixed(n int) Capacity {
	return Capacity{Mode: CapacityFixed, Cells: n}
}

// Growable returns a capacity starting at initial cells and growing right.
func Growable(initial int) Capacity {
	return Capacity{Mode: CapacityGrowable, Cells: initial}
}

// normalize applies the default and validates the size.
func (c Capacity) normalize() (Capacity, error) {
	if c.Mode == 0 && c.Cells == 0 {
		return Fixed(DefaultCells), nil
	}
	if c.Cells <= 0 {
		return c, fmt.Errorf("%w: %s", ErrInvalidCapacity, c)
	}
	if c.Mode != CapacityFixed && c.Mode != CapacityGrowable {
		return c, fmt.Errorf("%w: unknown mode %d", ErrInvalidCapacity, c.Mode)
	}
	return c, nil
}

// String formats the capacity as "fixed(N)" or "growable(N)".
func (c Capacity) String() string {
	if c.Mode == CapacityGrowable {
		return fmt.Sprintf("growable(%d)", c.Cells)
	}
	return fmt.Sprintf("fixed(%d)", c.Cells)
}

// ParseCapacity parses the String form of a capacity.
func ParseCapacity(s string) (Capacity, error) {
	var mode CapacityMode
	switch {
	case strings.HasPrefix(s, "fixed(") && strings.HasSuffix(s, ")"):
		mode = CapacityFixed
		s = strings.TrimSuffix(strings.TrimPrefix(s, "fixed("), ")")
	case strings.HasPrefix(s, "growable(") && strings.HasSuffix(s, ")"):
		mode = CapacityGrowable
		s = strings.TrimSuffix(strings.TrimPrefix(s, "growable("), ")")
	default:
		return Capacity{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidCapacity, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Capacity{}, fmt.Errorf("%w: %v", ErrInvalidCapacity, err)
	}
	return Capacity{Mode: mode, Cells: n}.normalize()
}

// Tape is a sequence of byte cells with a single pointer.
//
// INVARIANT: the pointer always indexes an existing cell. A failed move
// leaves the pointer where it was. Cell arithmetic wraps modulo 256.
type Tape struct {
	cells    []byte
	ptr      int
	growable bool
}

// NewTape allocates a zeroed tape for the given capacity.
func NewTape(c Capacity) (*Tape, error) {
	c, err := c.normalize()
	if err != nil {
		return nil, err
	}
	return &Tape{
		cells:    make([]byte, c.Cells),
		growable: c.Mode == CapacityGrowable,
	}, nil
}

// Read returns the current cell, or 0 for a cell that was never allocated.
func (t *Tape) Read() byte {
	if t.ptr >= len(t.cells) {
		return 0
	}
	return t.cells[t.ptr]
}

// Write stores v in the current cell.
func (t *Tape) Write(v byte) {
	t.cells[t.ptr] = v
}

// Inc adds one to the current cell; 255 wraps to 0.
func (t *Tape) Inc() {
	t.cells[t.ptr]++
}

// Dec subtracts one from the current cell; 0 wraps to 255.
func (t *Tape) Dec() {
	t.cells[t.ptr]--
}

// MoveRight advances the pointer.
// A fixed tape fails with OUT_OF_BOUNDS at its last cell; a growable tape
// appends a zero cell instead.
func (t *Tape) MoveRight() error {
	next := t.ptr + 1
	if next >= len(t.cells) {
		if !t.growable {
			return newOutOfBoundsError("right", t.ptr, len(t.cells))
		}
		t.cells = append(t.cells, 0)
	}
	t.ptr = next
	return nil
}

// MoveLeft moves the pointer back. It fails with OUT_OF_BOUNDS at cell 0;
// the tape never extends to the left.
func (t *Tape) MoveLeft() error {
	if t.ptr == 0 {
		return newOutOfBoundsError("left", t.ptr, len(t.cells))
	}
	t.ptr--
	return nil
}

// Pointer returns the current cell index.
func (t *Tape) Pointer() int {
	return t.ptr
}

// Len returns the number of allocated cells.
func (t *Tape) Len() int {
	return len(t.cells)
}

// Cells returns a copy of the tape contents.
func (t *Tape) Cells() []byte {
	out := make([]byte, len(t.cells))
	copy(out, t.cells)
	return out
}
