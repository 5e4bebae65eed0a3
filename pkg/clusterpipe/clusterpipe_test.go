package clusterpipe

import (
	"errors"
	"testing"

	"github.com/wingedpig/ippoolctl/pkg/leaseops"
	"github.com/wingedpig/ippoolctl/pkg/poolerr"
	"github.com/wingedpig/ippoolctl/pkg/rangeparse"
	"github.com/wingedpig/ippoolctl/pkg/redistransport"
)

// fakeConn is a scripted ClusterConn: flushErrs supplies one outcome per
// Flush call, consumed in order; the last entry repeats for any extra call.
type fakeConn struct {
	slotsCalls int
	enqueued   [][][]byte
	flushCalls int

	// flushErrs[i] is returned by the i-th Flush call (clamped to the last
	// entry once exhausted). A nil entry means "succeed with one KindInt(1)
	// reply per enqueued command".
	flushErrs []error
}

func (f *fakeConn) Slots(poolKey []byte) error {
	f.slotsCalls++
	return nil
}

func (f *fakeConn) Enqueue(args ...[]byte) {
	cp := make([][]byte, len(args))
	copy(cp, args)
	f.enqueued = append(f.enqueued, cp)
}

func (f *fakeConn) Flush() ([]redistransport.Reply, error) {
	idx := f.flushCalls
	if idx >= len(f.flushErrs) {
		idx = len(f.flushErrs) - 1
	}
	var err error
	if idx >= 0 {
		err = f.flushErrs[idx]
	}
	f.flushCalls++

	n := len(f.enqueued)
	f.enqueued = nil
	if err != nil {
		return nil, err
	}
	replies := make([]redistransport.Reply, n)
	for i := range replies {
		replies[i] = redistransport.Reply{Kind: redistransport.KindInt, Int: 1}
	}
	return replies, nil
}

func mustRange(t *testing.T, text string, p int) rangeparse.Range {
	t.Helper()
	r, err := rangeparse.Parse(text, p)
	if err != nil {
		t.Fatalf("Parse(%q,%d): %v", text, p, err)
	}
	return r
}

func TestRunProcessesEveryAddressOnFirstTry(t *testing.T) {
	r := mustRange(t, "10.0.0.0/30", 0)
	conn := &fakeConn{flushErrs: []error{nil}}
	out := &leaseops.Output{}

	if err := Run(conn, leaseops.Remove{}, []byte("office"), nil, r.Start, r.End, r.Prefix, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Count != 3 {
		t.Errorf("Count = %d, want 3", out.Count)
	}
	if conn.slotsCalls != 1 {
		t.Errorf("Slots called %d times, want 1", conn.slotsCalls)
	}
}

func TestRunRewindsOnTryAgainThenSucceeds(t *testing.T) {
	r := mustRange(t, "10.0.0.0/30", 0)
	conn := &fakeConn{flushErrs: []error{poolerr.ErrTryAgain, nil}}
	out := &leaseops.Output{}

	if err := Run(conn, leaseops.Remove{}, []byte("office"), nil, r.Start, r.End, r.Prefix, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Count != 3 {
		t.Errorf("Count = %d, want 3 (rewind must not double-count or drop addresses)", out.Count)
	}
	if conn.slotsCalls != 2 {
		t.Errorf("Slots called %d times, want 2 (re-acquired after redirect)", conn.slotsCalls)
	}
}

func TestRunSurfacesFatalRedisError(t *testing.T) {
	r := mustRange(t, "10.0.0.0/30", 0)
	conn := &fakeConn{flushErrs: []error{poolerr.ErrFatalRedis}}
	out := &leaseops.Output{}

	err := Run(conn, leaseops.Remove{}, []byte("office"), nil, r.Start, r.End, r.Prefix, out)
	if !errors.Is(err, poolerr.ErrFatalRedis) {
		t.Errorf("Run error = %v, want wrapping ErrFatalRedis", err)
	}
}

func TestRunSingleHostYieldsOneAddress(t *testing.T) {
	r := mustRange(t, "8.8.8.8/32", 0)
	conn := &fakeConn{flushErrs: []error{nil}}
	out := &leaseops.Output{}

	if err := Run(conn, leaseops.Remove{}, []byte("office"), nil, r.Start, r.End, r.Prefix, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Count != 1 {
		t.Errorf("Count = %d, want 1", out.Count)
	}
}

func TestRunAddSkipsNonArrayExecReplies(t *testing.T) {
	r := mustRange(t, "10.0.0.0-10.0.0.2", 0)
	conn := &fakeConn{flushErrs: []error{nil}}
	out := &leaseops.Output{}

	// fakeConn returns KindInt(1) for every reply, including the EXEC
	// position, so Add.Process (which expects a KindArray there) skips
	// every address; this only exercises that Run doesn't error out on a
	// malformed-but-well-counted reply stream.
	if err := Run(conn, leaseops.Add{}, []byte("office"), []byte("r1"), r.Start, r.End, r.Prefix, out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Count != 0 {
		t.Errorf("Count = %d, want 0 (EXEC replies were not arrays)", out.Count)
	}
}
