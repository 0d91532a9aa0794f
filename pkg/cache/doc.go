// Package cache implements the two-tier response cache.
//
// The fast tier is an in-process, sharded LRU with per-entry TTL. Its
// capacity applies to the tier as a whole, and only a full tier evicts. The
// shared tier is an optional network or on-disk store (redis or sqlite)
// reachable by every gateway instance. Manager combines them:
//
//   - Lookup checks the fast tier, then the shared tier. A shared hit is
//     promoted into the fast tier before it is returned.
//   - Store writes the fast tier synchronously and queues the shared write.
//   - Invalidate removes the entry from both tiers.
//
// The shared tier is never allowed to fail a request. Every call to it is
// bounded by a timeout and any error degrades to a miss or a no-op. After a
// connection failure the shared tier is skipped for a short cooldown.
//
// Operations on one fingerprint are linearizable; operations on different
// fingerprints do not contend beyond their fast-tier shard, except while a
// full fast tier looks for the entry to evict.
package cache
