// Package store persists message envelopes in an encrypted key/value
// file store. Only ciphertext ever reaches disk: records hold the opaque
// envelope exactly as it travelled on the wire, never plaintext.
package store
