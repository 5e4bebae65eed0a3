package leaseops

import (
	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/poolkeys"
	"github.com/wingedpig/ippoolctl/pkg/redistransport"
)

// Add implements the ADD action (spec.md §4.5): MULTI; ZADD NX 0; HSET
// range; EXEC. Four replies; only the EXEC array (the last one) matters.
type Add struct{}

func (Add) ReplyCount() int { return 4 }

func (Add) Enqueue(conn redistransport.ClusterConn, pool, rangeID []byte, addr ipaddr.Address, prefix int) {
	addrKey := poolkeys.Address(pool, poolkeys.AddrText(addr, prefix))
	poolKey := poolkeys.Pool(pool)

	conn.Enqueue([]byte("MULTI"))
	conn.Enqueue([]byte("ZADD"), poolKey, []byte("NX"), []byte("0"), []byte(poolkeys.AddrText(addr, prefix)))
	conn.Enqueue([]byte("HSET"), addrKey, []byte("range"), rangeID)
	conn.Enqueue([]byte("EXEC"))
}

func (Add) Process(out *Output, addr ipaddr.Address, prefix int, replies []redistransport.Reply) {
	if len(replies) != 4 {
		return
	}
	exec := replies[3]
	if exec.Kind != redistransport.KindArray || len(exec.Array) == 0 {
		return
	}
	zadd := exec.Array[0]
	if zadd.Kind != redistransport.KindInt {
		return
	}
	out.Count += zadd.Int
}
