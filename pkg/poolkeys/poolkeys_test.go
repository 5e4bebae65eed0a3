package poolkeys

import (
	"testing"

	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
)

func TestKeysShareHashTag(t *testing.T) {
	pool := []byte("office")
	if got, want := string(Pool(pool)), "{office}:pool"; got != want {
		t.Errorf("Pool() = %q, want %q", got, want)
	}
	if got, want := string(Address(pool, "10.0.0.1")), "{office}:ip:10.0.0.1"; got != want {
		t.Errorf("Address() = %q, want %q", got, want)
	}
	if got, want := string(Device(pool, []byte("ac:de:48:00:11:22"))), "{office}:device:ac:de:48:00:11:22"; got != want {
		t.Errorf("Device() = %q, want %q", got, want)
	}
}

func TestAddrTextOmitsSuffixAtFamilyWidth(t *testing.T) {
	a, err := ipaddr.Parse("10.0.0.1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := AddrText(a, 32), "10.0.0.1"; got != want {
		t.Errorf("AddrText() = %q, want %q", got, want)
	}
	if got, want := AddrText(a, 24), "10.0.0.1/24"; got != want {
		t.Errorf("AddrText() = %q, want %q", got, want)
	}
}

func TestAddrTextIPv6(t *testing.T) {
	a, err := ipaddr.Parse("2001:db8::10")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got, want := AddrText(a, 128), "2001:db8::10"; got != want {
		t.Errorf("AddrText() = %q, want %q", got, want)
	}
	if got, want := AddrText(a, 124), "2001:db8::10/124"; got != want {
		t.Errorf("AddrText() = %q, want %q", got, want)
	}
}
