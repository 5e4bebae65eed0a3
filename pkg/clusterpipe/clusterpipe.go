// Package clusterpipe implements the pipeline driver (C6) — spec.md §4.6
// calls it "the heart" of the tool: for one Operation, it batches up to
// MaxPipelined commands per round trip, demuxes the replies back to
// addresses in lock-step via the range iterator, and rewinds to the last
// acknowledged address on a cluster MOVED/ASK redirect.
package clusterpipe

import (
	"errors"
	"fmt"

	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/leaseops"
	"github.com/wingedpig/ippoolctl/pkg/poolerr"
	"github.com/wingedpig/ippoolctl/pkg/poolkeys"
	"github.com/wingedpig/ippoolctl/pkg/rangeiter"
	"github.com/wingedpig/ippoolctl/pkg/redistransport"
)

// MaxPipelined bounds the number of replies owed before a flush, per
// spec.md §4.6 step 3. It also bounds peak memory (spec.md §5) to
// O(MaxPipelined × per-address overhead), independent of range size.
const MaxPipelined = 1000

// Run drives action over every address in [start, end] at the given
// allocation prefix, against pool/rangeID, folding results into out, using
// the default pipeline depth (MaxPipelined).
func Run(conn redistransport.ClusterConn, action leaseops.Action, pool, rangeID []byte, start, end ipaddr.Address, prefix int, out *leaseops.Output) error {
	return RunWithDepth(conn, action, pool, rangeID, start, end, prefix, MaxPipelined, out)
}

// RunWithDepth is Run with an explicit pipeline depth, letting internal/config's
// pipeline_depth setting override the default.
func RunWithDepth(conn redistransport.ClusterConn, action leaseops.Action, pool, rangeID []byte, start, end ipaddr.Address, prefix, maxPipelined int, out *leaseops.Output) error {
	if maxPipelined <= 0 {
		maxPipelined = MaxPipelined
	}
	replyCount := action.ReplyCount()
	it := rangeiter.New(start.Family, prefix)
	poolKey := poolkeys.Pool(pool)

	cursor := start
	more := true
	for more {
		acked := cursor

		if err := conn.Slots(poolKey); err != nil {
			return fmt.Errorf("clusterpipe: slot lookup for pool %q: %w", pool, err)
		}

		addrs := make([]ipaddr.Address, 0, maxPipelined/max1(replyCount))
		owed := 0
		for owed < maxPipelined && more {
			addrs = append(addrs, cursor)
			action.Enqueue(conn, pool, rangeID, cursor, prefix)
			owed += replyCount

			next, cont := it.Next(cursor, end)
			cursor = next
			more = cont
		}

		replies, err := conn.Flush()
		if errors.Is(err, poolerr.ErrTryAgain) {
			// Redirect mid-batch: the idempotent command design (spec.md
			// §4.6) makes anything that made it through safe to replay.
			cursor = acked
			more = true
			continue
		}
		if err != nil {
			return fmt.Errorf("clusterpipe: flush: %w", err)
		}
		if len(replies) != owed {
			return fmt.Errorf("%w: got %d replies, expected %d", poolerr.ErrReplyShape, len(replies), owed)
		}

		for i, addr := range addrs {
			lo := i * replyCount
			action.Process(out, addr, prefix, replies[lo:lo+replyCount])
		}
	}
	return nil
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
