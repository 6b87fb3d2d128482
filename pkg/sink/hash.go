package sink

import "github.com/cespare/xxhash/v2"

// xxhashString adapts xxhash to the func(string) uint64 signature
// go-rendezvous expects for hashing shard names and lookup keys.
func xxhashString(s string) uint64 {
	return xxhash.Sum64String(s)
}
