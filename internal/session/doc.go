// Package session is the client-side orchestrator. The Controller ties
// the key store, the pairwise cipher, the key-exchange protocol and the
// transport together, and owns all per-message local state: the
// optimistic send lifecycle, the edit/delete/reaction/read-receipt state
// machine, the typing-indicator debounce and expiry, and media integrity
// verification.
//
// Encryption is strictly pairwise: each message is sealed for one
// designated recipient identity. Rooms act as a broadcast scope, not as a
// group-encryption boundary.
package session
