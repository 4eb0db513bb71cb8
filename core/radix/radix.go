// Package radix implements a mixed-radix positional number system used to
// enumerate state and action configurations.
//
// Digits are ordered most significant first. For bases b0..bn-1 the weight of
// digit i is the product of b(i+1)..b(n-1), so
//
//	index = d0*w0 + d1*w1 + ... + dn-1*1
//
// and Size is the product of all bases. A base of 1 is a digit that can only
// be zero. A base of 0 makes the whole system empty.
package radix

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when the product of the bases does not fit in an int.
var ErrOverflow = errors.New("radix: size overflows int")

// Radix is an immutable mixed-radix system.
type Radix struct {
	bases   []int
	weights []int
	size    int
}

// New builds the system for the given bases.
func New(bases ...int) (Radix, error) {
	r := Radix{
		bases:   append([]int(nil), bases...),
		weights: make([]int, len(bases)),
		size:    1,
	}
	for i := len(bases) - 1; i >= 0; i-- {
		b := bases[i]
		if b < 0 {
			return Radix{}, fmt.Errorf("radix: negative base %d at digit %d", b, i)
		}
		r.weights[i] = r.size
		if b > 0 && r.size > math.MaxInt/b {
			return Radix{}, ErrOverflow
		}
		r.size *= b
	}
	return r, nil
}

// Size is the number of distinct indices.
func (r Radix) Size() int { return r.size }

// Len is the number of digits.
func (r Radix) Len() int { return len(r.bases) }

// Base returns the base of digit i.
func (r Radix) Base(i int) int { return r.bases[i] }

// Weight returns the positional weight of digit i.
func (r Radix) Weight(i int) int { return r.weights[i] }

// Encode maps digits to their index.
func (r Radix) Encode(digits []int) (int, error) {
	if len(digits) != len(r.bases) {
		return 0, fmt.Errorf("radix: got %d digits, want %d", len(digits), len(r.bases))
	}
	idx := 0
	for i, d := range digits {
		if d < 0 || d >= r.bases[i] {
			return 0, fmt.Errorf("radix: digit %d = %d outside base %d", i, d, r.bases[i])
		}
		idx += d * r.weights[i]
	}
	return idx, nil
}

// Decode writes the digits of index into dst, allocating when dst is too
// short, and returns the digit slice.
func (r Radix) Decode(index int, dst []int) ([]int, error) {
	if index < 0 || index >= r.size {
		return nil, fmt.Errorf("radix: index %d outside [0,%d)", index, r.size)
	}
	if cap(dst) < len(r.bases) {
		dst = make([]int, len(r.bases))
	}
	dst = dst[:len(r.bases)]
	for i, w := range r.weights {
		dst[i] = index / w
		index %= w
	}
	return dst, nil
}
