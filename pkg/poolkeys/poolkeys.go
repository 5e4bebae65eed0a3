// Package poolkeys builds the three Redis key strings defined by spec.md
// §3/§4.4. Every key for a pool is hash-tagged on the pool id alone, so a
// cluster node holding one key for a pool holds all of them — required for
// the MULTI/EVAL atomicity the command builders in pkg/leaseops depend on.
package poolkeys

import (
	"strconv"

	"github.com/wingedpig/ippoolctl/pkg/ipaddr"
)

// Pool returns the pool ZSET key: {pool}:pool.
func Pool(pool []byte) []byte {
	b := make([]byte, 0, len(pool)+7)
	b = append(b, '{')
	b = append(b, pool...)
	b = append(b, '}', ':', 'p', 'o', 'o', 'l')
	return b
}

// Address returns the address hash key: {pool}:ip:<addr-text>.
func Address(pool []byte, addrText string) []byte {
	b := make([]byte, 0, len(pool)+6+len(addrText))
	b = append(b, '{')
	b = append(b, pool...)
	b = append(b, '}', ':', 'i', 'p', ':')
	b = append(b, addrText...)
	return b
}

// Device returns the device reverse key: {pool}:device:<devid>.
func Device(pool, devID []byte) []byte {
	b := make([]byte, 0, len(pool)+10+len(devID))
	b = append(b, '{')
	b = append(b, pool...)
	b = append(b, '}', ':', 'd', 'e', 'v', 'i', 'c', 'e', ':')
	b = append(b, devID...)
	return b
}

// AddrText renders the canonical address-text form used as both the ZSET
// member and the address key's suffix: the address's own text, with "/P"
// appended only for sub-prefix allocations (P != family width). Host
// allocations (P == family width) carry no suffix, matching what the
// atomic scripts in pkg/leaseops build their keys from.
func AddrText(addr ipaddr.Address, p int) string {
	if p == addr.Family.Width() {
		return addr.String()
	}
	return addr.String() + "/" + strconv.Itoa(p)
}
