package leaseops

import (
	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/poolkeys"
	"github.com/wingedpig/ippoolctl/pkg/redistransport"
)

// Remove implements the REMOVE action (spec.md §4.5): a single EVAL of
// removeScript, one integer reply.
type Remove struct{}

func (Remove) ReplyCount() int { return 1 }

func (Remove) Enqueue(conn redistransport.ClusterConn, pool, rangeID []byte, addr ipaddr.Address, prefix int) {
	conn.Enqueue(
		[]byte("EVAL"), []byte(removeScript), []byte("1"),
		pool, []byte(poolkeys.AddrText(addr, prefix)),
	)
}

func (Remove) Process(out *Output, addr ipaddr.Address, prefix int, replies []redistransport.Reply) {
	if len(replies) != 1 || replies[0].Kind != redistransport.KindInt {
		return
	}
	out.Count += replies[0].Int
}
