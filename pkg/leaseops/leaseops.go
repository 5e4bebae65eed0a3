// Package leaseops implements the command builders and reply processors
// (C5, C7) for the four pool actions. Spec.md §9's "callbacks for
// enqueue/process" design note is re-expressed here as the Action
// interface: one enqueue/process pair per action, closing over its own
// typed slice of the Output accumulator rather than an opaque out-pointer.
package leaseops

import (
	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/redistransport"
)

// Lease is the SHOW-output record from spec.md §3.
type Lease struct {
	Address   ipaddr.Address
	Prefix    int
	NextEvent int64
	Range     []byte
	Device    []byte
	Gateway   []byte
}

// Output is the per-action typed accumulator: ADD/REMOVE/RELEASE only ever
// touch Count, SHOW only ever touches Leases.
type Output struct {
	Count  int64
	Leases []Lease
}

// Action is the polymorphic per-action abstraction spec.md §9 asks for.
type Action interface {
	// ReplyCount is the fixed number of replies one address's commands
	// produce, used by pkg/clusterpipe to demux a flat pipeline reply slice.
	ReplyCount() int
	// Enqueue builds and submits the commands for one address.
	Enqueue(conn redistransport.ClusterConn, pool, rangeID []byte, addr ipaddr.Address, prefix int)
	// Process consumes exactly ReplyCount() replies for one address and
	// folds the result into out.
	Process(out *Output, addr ipaddr.Address, prefix int, replies []redistransport.Reply)
}
