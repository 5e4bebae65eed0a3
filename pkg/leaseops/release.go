package leaseops

import (
	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/poolkeys"
	"github.com/wingedpig/ippoolctl/pkg/redistransport"
)

// Release implements the RELEASE action (spec.md §4.5): a single EVAL of
// releaseScript, one integer reply.
type Release struct{}

func (Release) ReplyCount() int { return 1 }

func (Release) Enqueue(conn redistransport.ClusterConn, pool, rangeID []byte, addr ipaddr.Address, prefix int) {
	conn.Enqueue(
		[]byte("EVAL"), []byte(releaseScript), []byte("1"),
		pool, []byte(poolkeys.AddrText(addr, prefix)),
	)
}

func (Release) Process(out *Output, addr ipaddr.Address, prefix int, replies []redistransport.Reply) {
	if len(replies) != 1 || replies[0].Kind != redistransport.KindInt {
		return
	}
	out.Count += replies[0].Int
}
