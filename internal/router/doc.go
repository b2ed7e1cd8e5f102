// Package router is the server-side room fan-out: it tracks which
// connections joined which rooms and relays every room-scoped event to all
// other members. Payloads are opaque — they may be encrypted envelopes —
// and are never inspected or decrypted here. Delivery is at-most-once with
// per-sender FIFO ordering per room; durability belongs to the
// persistence collaborator, not this layer.
package router
