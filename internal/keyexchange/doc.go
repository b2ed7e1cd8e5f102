// Package keyexchange orchestrates the public-key handshake between
// pairwise peers: broadcasting the local key to newly-seen peers,
// accepting incoming keys, and replying exactly once so exchanges never
// loop. There is no central key-distribution authority; the relay moves
// keys but never holds them.
package keyexchange
