// Package crypto implements the end-to-end primitives: the per-session
// X25519 key store, pairwise shared-secret derivation, the authenticated
// message cipher, and the media integrity hasher.
//
// Contents
//
//   - KeyStore: one local key pair per session plus the peer key
//     directory populated by key exchange (GenerateKeyPair,
//     ExportPublicKey, ImportPeerKey)
//   - Cipher: ChaCha20-Poly1305 sealing keyed by an HKDF expansion of the
//     X25519 agreement with one peer (Encrypt, Decrypt)
//   - SHA-256 content digests for media integrity (Digest, VerifyDigest)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// Shared secrets are derived per peer and never persisted; the cipher
// caches the expanded AEAD key and drops the cache entry whenever the
// peer's public key changes. Private key material never leaves this
// package.
package crypto
