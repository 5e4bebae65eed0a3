package leaseops

import (
	"log"
	"strconv"

	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/poolkeys"
	"github.com/wingedpig/ippoolctl/pkg/redistransport"
)

// Show implements the SHOW action (spec.md §4.5): MULTI; ZSCORE; three
// HGETs; EXEC. Six replies; only the EXEC array (the last one) matters.
type Show struct{}

func (Show) ReplyCount() int { return 6 }

func (Show) Enqueue(conn redistransport.ClusterConn, pool, rangeID []byte, addr ipaddr.Address, prefix int) {
	poolKey := poolkeys.Pool(pool)
	addrKey := poolkeys.Address(pool, poolkeys.AddrText(addr, prefix))

	conn.Enqueue([]byte("MULTI"))
	conn.Enqueue([]byte("ZSCORE"), poolKey, []byte(poolkeys.AddrText(addr, prefix)))
	conn.Enqueue([]byte("HGET"), addrKey, []byte("device"))
	conn.Enqueue([]byte("HGET"), addrKey, []byte("gateway"))
	conn.Enqueue([]byte("HGET"), addrKey, []byte("range"))
	conn.Enqueue([]byte("EXEC"))
}

func (Show) Process(out *Output, addr ipaddr.Address, prefix int, replies []redistransport.Reply) {
	if len(replies) != 6 {
		return
	}
	exec := replies[5]
	if exec.Kind != redistransport.KindArray || len(exec.Array) != 4 {
		log.Printf("DEBUG: leaseops: malformed SHOW reply for %s/%d", addr, prefix)
		return
	}

	score := exec.Array[0]
	if score.Kind == redistransport.KindNil {
		// Not a pool member; nothing to report (spec.md §8 scenario 6).
		return
	}
	if score.Kind != redistransport.KindBulk {
		log.Printf("DEBUG: leaseops: malformed SHOW score for %s/%d", addr, prefix)
		return
	}
	nextEvent, err := strconv.ParseInt(string(score.Bulk), 10, 64)
	if err != nil {
		log.Printf("DEBUG: leaseops: non-numeric score for %s/%d: %v", addr, prefix, err)
		return
	}

	lease := Lease{
		Address:   addr,
		Prefix:    prefix,
		NextEvent: nextEvent,
		Device:    bulkOrNil(exec.Array[1]),
		Gateway:   bulkOrNil(exec.Array[2]),
		Range:     bulkOrNil(exec.Array[3]),
	}
	out.Leases = append(out.Leases, lease)
}

func bulkOrNil(r redistransport.Reply) []byte {
	if r.Kind != redistransport.KindBulk {
		return nil
	}
	return r.Bulk
}
