package leaseops

// removeScript implements spec.md §4.5's REMOVE action: ZREM the address,
// then — regardless of whether the ZREM found anything, so a prior partial
// removal is cleaned up too — drop the device reverse key and address hash
// if a device is still linked.
const removeScript = `
local pool = KEYS[1]
local addr = ARGV[1]
local poolkey = "{" .. pool .. "}:pool"
local addrkey = "{" .. pool .. "}:ip:" .. addr
local removed = redis.call("ZREM", poolkey, addr)
local dev = redis.call("HGET", addrkey, "device")
if dev then
	redis.call("DEL", "{" .. pool .. "}:device:" .. dev)
	redis.call("DEL", addrkey)
end
return removed
`

// releaseScript implements spec.md §4.5's RELEASE action: zero the address's
// expiry only if it's still a pool member, then unlink its device without
// touching the ZSET entry or address hash.
const releaseScript = `
local pool = KEYS[1]
local addr = ARGV[1]
local poolkey = "{" .. pool .. "}:pool"
local addrkey = "{" .. pool .. "}:ip:" .. addr
local changed = redis.call("ZADD", poolkey, "XX", "CH", 0, addr)
if changed == 0 then
	return 0
end
local dev = redis.call("HGET", addrkey, "device")
if dev then
	redis.call("DEL", "{" .. pool .. "}:device:" .. dev)
end
return 1
`
