package domain

import (
	"context"
	"encoding/json"
)

// Handler consumes one inbound event. The room is the routing scope the
// frame arrived under; data is the raw payload. Handlers for a single
// connection are invoked serially, in arrival order.
type Handler func(room string, data json.RawMessage)

// Transport is the narrow boundary to the real-time layer. At-least-once
// delivery is assumed within a live connection and none after close.
type Transport interface {
	// Connect dials and completes the identity handshake.
	Connect(ctx context.Context) error
	// Identity returns the transport-assigned identity for this
	// connection. Valid only after Connect; a reconnect yields a new one.
	Identity() string
	// On registers a handler for an event name.
	On(event string, h Handler)
	// Emit sends one event scoped to a room.
	Emit(event, room string, payload any) error
	Close() error
}

// KeyRing holds the local session key pair and the peer key directory.
type KeyRing interface {
	// GenerateKeyPair creates the session key pair. A second call fails
	// with ErrKeyPairExists.
	GenerateKeyPair() error
	// ExportPublicKey serializes the local public key for the wire.
	ExportPublicKey() (string, error)
	// ImportPeerKey decodes and stores a peer's public key. Re-importing
	// the same identity overwrites. Fails with ErrKeyFormat.
	ImportPeerKey(identity, encoded string) error
	// HasPeer reports whether a key is on file for the identity.
	HasPeer(identity string) bool
}

// Sealer is authenticated encryption bound to one pairwise peer.
type Sealer interface {
	// Encrypt seals plaintext for the peer; fails with ErrUnknownPeer
	// before key exchange.
	Encrypt(plaintext []byte, peer string) (string, error)
	// Decrypt opens an envelope from the peer; fails with ErrDecrypt on
	// tampering and ErrUnknownPeer before key exchange.
	Decrypt(envelope string, peer string) ([]byte, error)
}

// History is the optional persistence collaborator. It accepts envelopes
// already encrypted and is never asked to decrypt anything.
type History interface {
	SaveEnvelope(rec HistoryRecord) error
	LoadRoom(roomID string) ([]HistoryRecord, error)
}

// Notary is the fire-and-forget verification oracle. Failures are
// non-fatal to message delivery.
type Notary interface {
	// Attest records (messageID, digest) and returns an opaque
	// attestation reference.
	Attest(ctx context.Context, messageID, digest string) (string, error)
}
