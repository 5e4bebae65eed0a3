// Package operation implements the Operation data type (spec.md §3) and the
// operation driver (C8): orchestrating pkg/rangeparse, pkg/clusterpipe, and
// pkg/leaseops for one parsed command-line action, then formatting its
// result the way spec.md §4.8 requires.
package operation

import (
	"fmt"
	"time"

	"github.com/wingedpig/ippoolctl/pkg/clusterpipe"
	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/leaseops"
	"github.com/wingedpig/ippoolctl/pkg/poolerr"
	"github.com/wingedpig/ippoolctl/pkg/rangeparse"
	"github.com/wingedpig/ippoolctl/pkg/redistransport"
)

// Kind is the action an Operation performs.
type Kind int

const (
	Add Kind = iota
	Remove
	Release
	Show
)

func (k Kind) String() string {
	switch k {
	case Add:
		return "ADD"
	case Remove:
		return "REMOVE"
	case Release:
		return "RELEASE"
	case Show:
		return "SHOW"
	default:
		return "UNKNOWN"
	}
}

// Operation is spec.md §3's data model entry: one action over one parsed
// address range.
type Operation struct {
	Kind         Kind
	OriginalText string
	Pool         []byte
	RangeID      []byte
	Start, End   ipaddr.Address
	Prefix       int
}

// New parses rangeText (the CLI's A/A-B/A/N grammar) at the given allocation
// prefix into an Operation, validating spec.md §3's start/end invariants via
// pkg/rangeparse.
func New(kind Kind, pool, rangeID []byte, rangeText string, allocPrefix int) (Operation, error) {
	r, err := rangeparse.Parse(rangeText, allocPrefix)
	if err != nil {
		return Operation{}, err
	}
	return Operation{
		Kind:         kind,
		OriginalText: rangeText,
		Pool:         pool,
		RangeID:      rangeID,
		Start:        r.Start,
		End:          r.End,
		Prefix:       r.Prefix,
	}, nil
}

func (op Operation) action() (leaseops.Action, string) {
	switch op.Kind {
	case Add:
		return leaseops.Add{}, "Added"
	case Remove:
		return leaseops.Remove{}, "Removed"
	case Release:
		return leaseops.Release{}, "Released"
	case Show:
		return leaseops.Show{}, ""
	default:
		return nil, ""
	}
}

// Result is the formatted outcome of running one Operation: either a single
// aggregate count line, or a set of lease records for SHOW.
type Result struct {
	CountLine string
	Leases    []leaseops.Lease
}

// Run executes op against conn, using clusterpipe's default pipeline depth,
// and returns its formatted result.
func Run(conn redistransport.ClusterConn, op Operation) (Result, error) {
	return RunWithDepth(conn, op, clusterpipe.MaxPipelined)
}

// RunWithDepth is Run with an explicit pipeline depth, so a loaded
// internal/config.Config's PipelineDepth setting actually governs batch size.
func RunWithDepth(conn redistransport.ClusterConn, op Operation, pipelineDepth int) (Result, error) {
	action, verb := op.action()
	if action == nil {
		return Result{}, fmt.Errorf("%w: unknown operation kind %v", poolerr.ErrUsage, op.Kind)
	}

	out := &leaseops.Output{}
	if err := clusterpipe.RunWithDepth(conn, action, op.Pool, op.RangeID, op.Start, op.End, op.Prefix, pipelineDepth, out); err != nil {
		return Result{}, err
	}

	if op.Kind == Show {
		return Result{Leases: out.Leases}, nil
	}
	return Result{CountLine: fmt.Sprintf("%s %d", verb, out.Count)}, nil
}

// FormatLease renders one SHOW lease in spec.md §4.8's field order, using
// distinct labels for the active vs expired cases and omitting empty
// fields rather than printing them blank.
func FormatLease(l leaseops.Lease, now time.Time) string {
	addrText := l.Address.String()
	if l.Prefix != l.Address.Family.Width() {
		addrText = fmt.Sprintf("%s/%d", addrText, l.Prefix)
	}

	active := now.Unix() <= l.NextEvent

	var b []byte
	if len(l.Range) > 0 {
		b = append(b, fmt.Sprintf("range %s ", l.Range)...)
	}
	b = append(b, addrText...)
	if l.NextEvent > 0 {
		ts := time.Unix(l.NextEvent, 0).Local().Format("2006-01-02 15:04:05 MST")
		if active {
			b = append(b, fmt.Sprintf(" lease expires %s", ts)...)
		} else {
			b = append(b, fmt.Sprintf(" lease expired %s", ts)...)
		}
	}
	if len(l.Device) > 0 {
		if active {
			b = append(b, fmt.Sprintf(" device id %s", l.Device)...)
		} else {
			b = append(b, fmt.Sprintf(" last device id %s", l.Device)...)
		}
	}
	if len(l.Gateway) > 0 {
		if active {
			b = append(b, fmt.Sprintf(" gateway id %s", l.Gateway)...)
		} else {
			b = append(b, fmt.Sprintf(" last gateway id %s", l.Gateway)...)
		}
	}
	return string(b)
}
