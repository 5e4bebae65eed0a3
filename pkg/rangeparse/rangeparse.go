// Package rangeparse implements the address-range grammar from spec.md
// §4.2: "A", "A-B", and "A/N", each optionally combined with an allocation
// prefix, normalized into a (start, end, effective-prefix) triple.
package rangeparse

import (
	"fmt"
	"strings"

	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/poolerr"
	"github.com/wingedpig/ippoolctl/pkg/wideint"
)

// Range is the normalized (start, end, prefix) triple spec.md §4.2 produces.
// Start and End are both Prefix-masked, same family, and Start <= End.
type Range struct {
	Start, End ipaddr.Address
	Prefix     int // effective allocation prefix P
}

// Parse parses one of the three range grammars into a normalized Range.
// allocPrefix is the operator-supplied -p value; 0 means "use the family
// width" (rule 1 below).
//
// Rules, applied in this order (spec.md §4.2):
//  1. If P == 0, set P = family width.
//  2. Reject if P < the range's natural network prefix, P > family width,
//     or P - natural prefix > 64 (bounds the iteration count to <= 2^64).
//  3. Broadcast exclusion: exclude the top address only when P equals the
//     family width. When excluding, a natural prefix within one bit of the
//     family width denotes a single address (no decrement); otherwise the
//     excluded top address is computed by setting the range's host bits and
//     subtracting one.
//  4. All arithmetic is performed in host byte order.
func Parse(text string, allocPrefix int) (Range, error) {
	switch {
	case strings.Contains(text, "/"):
		return parseCIDR(text, allocPrefix)
	case strings.Contains(text, "-"):
		return parseDash(text, allocPrefix)
	default:
		return parseHost(text, allocPrefix)
	}
}

// parseHost parses a bare address "A", equivalent to "A/family-width".
func parseHost(text string, allocPrefix int) (Range, error) {
	a, err := ipaddr.Parse(text)
	if err != nil {
		return Range{}, err
	}
	return deriveFromCIDR(a, a.Family.Width(), allocPrefix)
}

// parseCIDR parses "A/N".
func parseCIDR(text string, allocPrefix int) (Range, error) {
	a, err := ipaddr.ParsePrefix(text)
	if err != nil {
		return Range{}, err
	}
	return deriveFromCIDR(a, a.Prefix, allocPrefix)
}

// deriveFromCIDR implements spec.md §4.2's "A/N" derivation: natural is the
// network prefix N parsed from the literal (or the family width, for a bare
// host). a carries the address as parsed, host bits intact.
func deriveFromCIDR(a ipaddr.Address, natural, allocPrefix int) (Range, error) {
	width := a.Family.Width()
	p := allocPrefix
	if p == 0 {
		p = width
	}
	if err := validate(p, natural, width); err != nil {
		return Range{}, err
	}

	start := a.Mask(p)
	end := start
	if natural < width {
		hostMask := ipaddr.HostRangeMask(width, natural, p)
		end.Value = wideint.Or(start.Value, hostMask)
	}

	if p == width {
		// Broadcast exclusion only applies to full-host allocation.
		if natural >= width-1 {
			end = start // single address, nothing to exclude
		} else {
			end.Value = wideint.Sub(end.Value, wideint.U128{Lo: 1})
		}
	}
	end.Prefix = p

	return Range{Start: start, End: end, Prefix: p}, nil
}

// parseDash parses "A-B": two addresses of the same family, in ascending
// order, each masked to the effective allocation prefix. Neither endpoint
// carries a CIDR network prefix of its own; like a bare host literal (see
// parseHost), each is a full-width host address, so the natural prefix rule
// 2 validates against is the family width.
func parseDash(text string, allocPrefix int) (Range, error) {
	parts := strings.SplitN(text, "-", 2)
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("%w: %q", poolerr.ErrMalformed, text)
	}
	start, err := ipaddr.Parse(strings.TrimSpace(parts[0]))
	if err != nil {
		return Range{}, err
	}
	end, err := ipaddr.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return Range{}, err
	}
	if start.Family != end.Family {
		return Range{}, fmt.Errorf("%w: %q", poolerr.ErrFamilyMismatch, text)
	}
	if start.Compare(end) > 0 {
		return Range{}, fmt.Errorf("%w: %q", poolerr.ErrStartAfterEnd, text)
	}

	width := start.Family.Width()
	p := allocPrefix
	if p == 0 {
		p = width
	}
	if err := validate(p, width, width); err != nil {
		return Range{}, err
	}

	return Range{Start: start.Mask(p), End: end.Mask(p), Prefix: p}, nil
}

func validate(p, natural, width int) error {
	if p < natural {
		return fmt.Errorf("%w: prefix %d shorter than network prefix %d", poolerr.ErrPrefixOutOfBounds, p, natural)
	}
	if p > width {
		return fmt.Errorf("%w: prefix %d exceeds family width %d", poolerr.ErrPrefixOutOfBounds, p, width)
	}
	if p-natural > 64 {
		return fmt.Errorf("%w: prefix span %d-%d exceeds 64 bits", poolerr.ErrPrefixSpanTooLarge, natural, p)
	}
	return nil
}
