// Package rangeiter implements the range iterator from spec.md §4.3: a pure,
// non-aliasing "next" step (per spec.md §9's "mutation-through-pointer
// iteration" redesign note) over the addresses produced by rangeparse.
package rangeiter

import (
	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/wideint"
)

// Iterator holds the fixed step size for one Operation's walk: addresses
// advance by 2^(family width - prefix) each step.
type Iterator struct {
	step wideint.U128
}

// New builds an Iterator for the given family and effective allocation
// prefix (rangeparse.Range.Prefix).
func New(family ipaddr.Family, prefix int) Iterator {
	shift := family.Width() - prefix
	if shift >= 128 {
		// Only reachable with a prefix of 0 (or less), which rangeparse.Parse
		// never returns: it turns an allocation prefix of 0 into the family
		// width. A zero step is returned instead of panicking in wideint.Shl.
		return Iterator{}
	}
	return Iterator{step: wideint.Shl(wideint.U128{Lo: 1}, uint(shift))}
}

// Next returns the address after cur and whether the walk should continue.
// It returns false (done) iff cur already equals end — the caller's drive
// loop emits cur, then calls Next to decide whether to keep going, so the
// final address (the one equal to end) is always yielded exactly once and
// is the last one processed.
func (it Iterator) Next(cur, end ipaddr.Address) (next ipaddr.Address, more bool) {
	if cur.Equal(end) {
		return cur, false
	}
	next = cur
	next.Value = wideint.Add(cur.Value, it.step)
	return next, true
}

// Count returns the number of addresses a walk from start to end will
// yield, assuming start and end were produced together by rangeparse.Parse
// (so end is reachable from start by whole steps of 2^(width-prefix)).
func Count(start, end ipaddr.Address, prefix int) uint64 {
	shift := uint(start.Family.Width() - prefix)
	diff := wideint.Sub(end.Value, start.Value)
	return shr(diff, shift) + 1
}

func shr(a wideint.U128, k uint) uint64 {
	if k == 0 {
		return a.Lo
	}
	if k < 64 {
		return (a.Lo >> k) | (a.Hi << (64 - k))
	}
	if k < 128 {
		return a.Hi >> (k - 64)
	}
	return 0
}
