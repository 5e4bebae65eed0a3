package operation

import (
	"testing"
	"time"

	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
	"github.com/wingedpig/ippoolctl/pkg/leaseops"
)

func TestNewParsesRangeIntoOperation(t *testing.T) {
	op, err := New(Add, []byte("office"), []byte("r1"), "10.0.0.0/30", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if op.Start.String() != "10.0.0.0" || op.End.String() != "10.0.0.2" || op.Prefix != 32 {
		t.Errorf("op = %+v", op)
	}
}

func TestNewPropagatesParseError(t *testing.T) {
	if _, err := New(Add, []byte("office"), nil, "not-an-address", 0); err == nil {
		t.Fatal("expected error for malformed range text")
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{Add: "ADD", Remove: "REMOVE", Release: "RELEASE", Show: "SHOW"}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestFormatLeaseWithoutMetadataOmitsEmptyFields(t *testing.T) {
	a, err := ipaddr.Parse("10.0.0.1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	l := leaseops.Lease{Address: a, Prefix: 32}
	now := time.Unix(1000, 0)
	got := FormatLease(l, now)
	if got != "10.0.0.1" {
		t.Errorf("FormatLease(no metadata) = %q, want bare address", got)
	}
}

func TestFormatLeaseExpiredUsesLastLabels(t *testing.T) {
	a, err := ipaddr.Parse("10.0.0.5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	l := leaseops.Lease{
		Address:   a,
		Prefix:    32,
		NextEvent: 100, // well in the past relative to `now`
		Device:    []byte("dev1"),
		Gateway:   []byte("gw1"),
	}
	now := time.Unix(10000, 0)
	got := FormatLease(l, now)
	if !contains(got, "lease expired") || !contains(got, "last device id dev1") || !contains(got, "last gateway id gw1") {
		t.Errorf("FormatLease(expired) = %q", got)
	}
}

func TestFormatLeaseActiveUsesExpiresLabels(t *testing.T) {
	a, err := ipaddr.Parse("10.0.0.5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	l := leaseops.Lease{
		Address:   a,
		Prefix:    32,
		NextEvent: 99999999999,
		Device:    []byte("dev1"),
	}
	now := time.Unix(10000, 0)
	got := FormatLease(l, now)
	if !contains(got, "lease expires") || !contains(got, "device id dev1") || contains(got, "last device id") {
		t.Errorf("FormatLease(active) = %q", got)
	}
}

func TestFormatLeaseJustAddedIsInactive(t *testing.T) {
	a, err := ipaddr.Parse("10.0.0.1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	l := leaseops.Lease{
		Address:   a,
		Prefix:    32,
		NextEvent: 0,
		Device:    []byte("dev1"),
		Gateway:   []byte("gw1"),
	}
	now := time.Unix(10000, 0)
	got := FormatLease(l, now)
	if !contains(got, "last device id dev1") || !contains(got, "last gateway id gw1") {
		t.Errorf("FormatLease(NextEvent=0, just added) = %q, want inactive labels", got)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
