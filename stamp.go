package flowgraph

import (
	"math/big"
	"sync"
)

// Color identifies a stamp synchronization family. Stamps of different
// colors are never ordered against each other, even when their indices
// coincide.
type Color uint64

var (
	colorMu      sync.Mutex
	nextColor    Color
	colorIncrement = map[Color]*big.Rat{}
)

// Stamp is an immutable, cheaply-copyable ordering token attached to every
// datum traveling through the graph. Stamps of the same color are totally
// ordered by index; stamps of different colors are never ordered.
type Stamp struct {
	color Color
	index *big.Rat
}

// NewStamp allocates a fresh color (process-wide, thread-safe, monotone)
// and returns the color's initial stamp at index 0. increment is the
// per-step index delta recorded for the color and used by Increment.
func NewStamp(increment *big.Rat) Stamp {
	colorMu.Lock()
	defer colorMu.Unlock()

	c := nextColor
	nextColor++
	if increment == nil {
		increment = big.NewRat(1, 1)
	}
	colorIncrement[c] = new(big.Rat).Set(increment)

	return Stamp{color: c, index: big.NewRat(0, 1)}
}

// Increment returns a new stamp of the same color whose index advances by
// the color's registered increment rate. The color itself never changes.
func (s Stamp) Increment() Stamp {
	colorMu.Lock()
	inc, ok := colorIncrement[s.color]
	colorMu.Unlock()
	if !ok {
		inc = big.NewRat(1, 1)
	}

	next := new(big.Rat).Add(s.index, inc)
	return Stamp{color: s.color, index: next}
}

// Color returns the stamp's synchronization family.
func (s Stamp) Color() Color {
	return s.color
}

// Index returns the stamp's accumulation index.
func (s Stamp) Index() *big.Rat {
	return new(big.Rat).Set(s.index)
}

// SameColor reports whether two stamps belong to the same color family.
func (s Stamp) SameColor(other Stamp) bool {
	return s.color == other.color
}

// Equal reports whether two stamps have the same color and index.
func (s Stamp) Equal(other Stamp) bool {
	return s.color == other.color && s.index.Cmp(other.index) == 0
}

// Less reports whether s orders strictly before other. Stamps of different
// colors are never ordered; Less returns false for any pair of differently
// colored stamps, i.e. any pair for which Comparable reports false.
func (s Stamp) Less(other Stamp) bool {
	if s.color != other.color {
		return false
	}
	return s.index.Cmp(other.index) < 0
}

// Comparable reports whether two stamps can be meaningfully ordered (same
// color). Ordering between different colors is undefined.
func (s Stamp) Comparable(other Stamp) bool {
	return s.color == other.color
}
