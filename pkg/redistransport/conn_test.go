package redistransport

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/mediocregopher/radix/v3"
	"github.com/mediocregopher/radix/v3/resp"
	"github.com/mediocregopher/radix/v3/resp/resp2"

	"github.com/wingedpig/ippoolctl/pkg/poolerr"
)

// fakeRadixConn is a scripted radix.Conn: Encode is a no-op recorder, Decode
// hands back the next queued Go value (bypassing real RESP wire parsing, the
// same shapes fromAny already expects from a genuine decode).
type fakeRadixConn struct {
	encoded     int
	decodeQueue []interface{}
	closed      bool
}

func (f *fakeRadixConn) Encode(m resp.Marshaler) error {
	f.encoded++
	return nil
}

func (f *fakeRadixConn) Decode(m resp.Unmarshaler) error {
	if len(f.decodeQueue) == 0 {
		return errors.New("fakeRadixConn: decode queue exhausted")
	}
	v := f.decodeQueue[0]
	f.decodeQueue = f.decodeQueue[1:]
	any, ok := m.(*resp2.Any)
	if !ok {
		return errors.New("fakeRadixConn: unexpected unmarshaler type")
	}
	ptr, ok := any.I.(*interface{})
	if !ok {
		return errors.New("fakeRadixConn: unexpected Any.I type")
	}
	*ptr = v
	return nil
}

func (f *fakeRadixConn) Do(a radix.Action) error { return nil }

func (f *fakeRadixConn) NetConn() net.Conn { return nil }

func (f *fakeRadixConn) Close() error {
	f.closed = true
	return nil
}

func newTestDialer() *Dialer {
	return NewDialer(time.Second, 0, 0)
}

func TestSlotsDialsNodeAlreadyCachedForSlot(t *testing.T) {
	d := newTestDialer()
	poolKey := []byte("{office}:pool")
	slot := slotForKey(poolKey)

	fakeA := &fakeRadixConn{}
	d.slots[slot] = "node-a:6379"
	d.nodes["node-a:6379"] = &node{conn: fakeA}

	conn := d.NewConn()
	if err := conn.Slots(poolKey); err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if conn.current != fakeA {
		t.Fatalf("conn.current = %v, want fakeA", conn.current)
	}
}

// TestFlushRedirectAdvancesSlotCacheToTarget is the regression case: a
// MOVED reply must repoint the Dialer's slot cache at the redirect's target
// node so the next Slots call for the same pool key actually dials the new
// owner, instead of reconnecting to the node that just rejected the batch.
func TestFlushRedirectAdvancesSlotCacheToTarget(t *testing.T) {
	d := newTestDialer()
	poolKey := []byte("{office}:pool")
	slot := slotForKey(poolKey)

	fakeA := &fakeRadixConn{decodeQueue: []interface{}{
		errors.New("MOVED 1 node-b:6379"),
	}}
	fakeB := &fakeRadixConn{decodeQueue: []interface{}{int64(1)}}

	d.slots[slot] = "node-a:6379"
	d.nodes["node-a:6379"] = &node{conn: fakeA}
	d.nodes["node-b:6379"] = &node{conn: fakeB}

	conn := d.NewConn()
	if err := conn.Slots(poolKey); err != nil {
		t.Fatalf("Slots: %v", err)
	}
	conn.Enqueue([]byte("ZADD"), poolKey, []byte("NX"), []byte("0"), []byte("10.0.0.1"))

	_, err := conn.Flush()
	if !errors.Is(err, poolerr.ErrTryAgain) {
		t.Fatalf("Flush error = %v, want ErrTryAgain", err)
	}

	d.mu.Lock()
	gotAddr := d.slots[slot]
	d.mu.Unlock()
	if gotAddr != "node-b:6379" {
		t.Fatalf("slots[%d] = %q after redirect, want %q", slot, gotAddr, "node-b:6379")
	}

	if err := conn.Slots(poolKey); err != nil {
		t.Fatalf("Slots (post-redirect): %v", err)
	}
	if conn.current != fakeB {
		t.Fatalf("conn.current after redirect+Slots = %v, want fakeB", conn.current)
	}
}
