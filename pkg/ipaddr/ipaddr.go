// Package ipaddr provides the address family type used throughout the pool
// tool: a tagged (v4/v6, value, prefix) triple built on pkg/wideint, plus the
// textual parsing/rendering glue that keeps net/netip at the boundary and
// host-order integer arithmetic everywhere else.
package ipaddr

import (
	"fmt"
	"net/netip"

	"github.com/wingedpig/ippoolctl/pkg/poolerr"
	"github.com/wingedpig/ippoolctl/pkg/wideint"
)

// Family identifies the IP address family of an Address.
type Family int

const (
	// V4 is IPv4, a 32-bit family.
	V4 Family = 4
	// V6 is IPv6, a 128-bit family.
	V6 Family = 6
)

// Width returns the bit width of the family (32 for V4, 128 for V6).
func (f Family) Width() int {
	if f == V4 {
		return 32
	}
	return 128
}

func (f Family) String() string {
	if f == V4 {
		return "IPv4"
	}
	return "IPv6"
}

// Address is a family-tagged 128-bit value with a prefix length. For V4, the
// value occupies the low 32 bits of Value; Prefix is measured in the
// family's own bit width (0..32 for V4, 0..128 for V6). The invariant
// Prefix <= Family.Width() is maintained by every constructor in this
// package.
type Address struct {
	Family Family
	Value  wideint.U128
	Prefix int
}

// Parse parses a single address literal (no prefix suffix) into an Address
// whose Prefix is set to the family's full width, mirroring spec.md §4.2's
// "a single host, equivalent to A/family-width" rule.
func Parse(s string) (Address, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", poolerr.ErrMalformed, s, err)
	}
	return fromNetip(addr), nil
}

// ParsePrefix parses "A/N" CIDR notation into an Address whose Prefix is N
// (the network prefix, not yet the caller's allocation prefix).
func ParsePrefix(s string) (Address, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", poolerr.ErrMalformed, s, err)
	}
	a := fromNetip(p.Addr())
	a.Prefix = p.Bits()
	return a, nil
}

func fromNetip(addr netip.Addr) Address {
	if addr.Is4() {
		return Address{Family: V4, Value: wideint.FromBytes4(addr.As4()), Prefix: 32}
	}
	return Address{Family: V6, Value: wideint.FromBytes16(addr.As16()), Prefix: 128}
}

// Netip renders an Address back into a net/netip.Addr, dropping the prefix
// (used only at text-formatting boundaries).
func (a Address) Netip() netip.Addr {
	if a.Family == V4 {
		return netip.AddrFrom4(wideint.Bytes4(a.Value))
	}
	return netip.AddrFrom16(wideint.Bytes16(a.Value))
}

// String renders the address in canonical textual form, with no prefix
// suffix.
func (a Address) String() string {
	return a.Netip().String()
}

// Mask returns a with its host bits (those past prefix p) cleared, i.e. the
// network-aligned base address of the /p block containing a. p is measured
// in the family's own bit width; since a V4 value occupies only the low 32
// bits of the 128-bit word, the bits cleared are relative to the family
// width, not to a flat 128-bit mask.
func (a Address) Mask(p int) Address {
	clear := uint(a.Family.Width() - p)
	a.Value = wideint.And(a.Value, wideint.Not(wideint.MaskLow(clear)))
	a.Prefix = p
	return a
}

// HostRangeMask returns a mask with bits set in the host-bit range
// [loPrefix, hiPrefix) of an address family of the given width — i.e. the
// bits an allocation at hiPrefix leaves as "host" but an allocation at
// loPrefix already fixed as network. Used by rangeparse to derive a range's
// end address from its start (spec.md §4.2 rule 3).
func HostRangeMask(width, loPrefix, hiPrefix int) wideint.U128 {
	return wideint.And(
		wideint.MaskLow(uint(width-loPrefix)),
		wideint.Not(wideint.MaskLow(uint(width-hiPrefix))),
	)
}

// Compare orders two addresses numerically, in network-byte-order terms (as
// spec.md §3 requires for Operation's start<=end invariant). Addresses of
// different families are not comparable by value; callers must check Family
// equality first (see poolerr.ErrFamilyMismatch).
func (a Address) Compare(b Address) int {
	return wideint.Compare(a.Value, b.Value)
}

// Equal reports whether a and b denote the same family and value.
func (a Address) Equal(b Address) bool {
	return a.Family == b.Family && wideint.Equal(a.Value, b.Value)
}
