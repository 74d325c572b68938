// Package kvstore defines the persistence boundary shared by the
// idempotency cache and the write-ahead log.
//
// The Store interface needs only get/set-with-TTL, atomic set-if-absent,
// and prefix scan; any key-value store with those primitives suffices.
// Two implementations are provided:
//
//   - Memory: process-local, correct within one process but forfeits
//     crash recovery across restarts. Intended for tests and single-node
//     development deployments.
//   - Redis: the durable deployment, visible across horizontally scaled
//     executor instances.
package kvstore
