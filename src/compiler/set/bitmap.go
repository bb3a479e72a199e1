// Package set provides small growable bitsets used by the propagation
// pipeline: Bitmap backs the graph's preserved-locals table, and Keyed
// backs the abstract state's unreachable-node marks.
package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

// Bitmap is a growable set of small non-negative integers backed by a
// slice of words. The zero value is not usable; use New or Make.
type Bitmap struct {
	w  []uint64
	w0 [1]uint64
}

// New allocates a Bitmap able to hold indices up to len without growing.
func New(len int) *Bitmap {
	b := Make(len)
	return &b
}

// Make is the value form of New.
func Make(ln int) Bitmap {
	b := Bitmap{}
	b.w = b.w0[:]

	words := (ln + 63) / 64
	if words > len(b.w) {
		b.w = make([]uint64, words)
	}

	return b
}

func (b *Bitmap) Set(i int) {
	wi, bi := index(i)
	b.grow(wi)
	b.w[wi] |= 1 << bi
}

func (b *Bitmap) Clear(i int) {
	wi, bi := index(i)
	if wi >= len(b.w) {
		return
	}
	b.w[wi] &^= 1 << bi
}

func (b *Bitmap) IsSet(i int) bool {
	wi, bi := index(i)
	if wi >= len(b.w) {
		return false
	}
	return b.w[wi]&(1<<bi) != 0
}

// Or merges x into b in place (union).
func (b *Bitmap) Or(x Bitmap) {
	b.grow(len(x.w) - 1)
	for i, w := range x.w {
		b.w[i] |= w
	}
}

// And intersects b with x in place.
func (b *Bitmap) And(x Bitmap) {
	for i := range b.w {
		if i >= len(x.w) {
			b.w[i] = 0
			continue
		}
		b.w[i] &= x.w[i]
	}
}

// IsSupersetOf reports whether every bit set in x is also set in b.
func (b Bitmap) IsSupersetOf(x Bitmap) bool {
	for i, w := range x.w {
		if i >= len(b.w) {
			if w != 0 {
				return false
			}
			continue
		}
		if b.w[i]&w != w {
			return false
		}
	}
	return true
}

func (b Bitmap) Copy() Bitmap {
	c := Make(b.Len())
	c.Or(b)
	return c
}

// Size returns the number of set bits.
func (b Bitmap) Size() (n int) {
	for _, w := range b.w {
		n += bits.OnesCount64(w)
	}
	return n
}

// Range calls f for every set bit in ascending order, stopping early if f
// returns false.
func (b Bitmap) Range(f func(i int) bool) {
	for wi, w := range b.w {
		if w == 0 {
			continue
		}
		for bi := 0; bi < 64; bi++ {
			if w&(1<<bi) == 0 {
				continue
			}
			if !f(wi*64 + bi) {
				return
			}
		}
	}
}

// Len returns one past the highest set bit, or 0 if empty.
func (b Bitmap) Len() int {
	for wi := len(b.w) - 1; wi >= 0; wi-- {
		if b.w[wi] == 0 {
			continue
		}
		return wi*64 + 64 - bits.LeadingZeros64(b.w[wi])
	}
	return 0
}

func (b Bitmap) Reset() {
	for i := range b.w {
		b.w[i] = 0
	}
}

func (b Bitmap) TlogAppend(buf []byte) []byte {
	var e tlwire.LowEncoder

	if b.w == nil {
		return e.AppendNil(buf)
	}

	buf = e.AppendTag(buf, tlwire.Array, -1)
	b.Range(func(i int) bool {
		buf = e.AppendInt(buf, i)
		return true
	})
	buf = e.AppendBreak(buf)

	return buf
}

func index(i int) (word, bit int) {
	return i / 64, i % 64
}

func (b *Bitmap) grow(wi int) {
	for wi >= len(b.w) {
		b.w = append(b.w, 0)
	}
}
