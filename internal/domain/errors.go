package domain

import "github.com/pkg/errors"

// Failure taxonomy for the core. Cryptographic and integrity failures are
// always local to one message; transport failures surface as session state
// and never invalidate already-exchanged peer keys.
var (
	// ErrKeyFormat reports a malformed or invalid public key encoding.
	ErrKeyFormat = errors.New("invalid public key")

	// ErrUnknownPeer reports an encrypt/decrypt attempt before the peer's
	// key was exchanged.
	ErrUnknownPeer = errors.New("no public key on file for peer")

	// ErrDecrypt reports an authentication failure opening an envelope.
	ErrDecrypt = errors.New("envelope failed authentication")

	// ErrHashMismatch reports a media integrity check failure. The message
	// is still delivered; the attachment is flagged unverified.
	ErrHashMismatch = errors.New("media digest mismatch")

	// ErrTransportClosed reports an emit on a closed or never-connected
	// transport.
	ErrTransportClosed = errors.New("transport closed")

	// ErrKeyPairExists guards against accidental key-pair regeneration,
	// which would silently invalidate every derived shared secret.
	ErrKeyPairExists = errors.New("key pair already generated for this session")

	// ErrNoKeyPair reports use of the key store before GenerateKeyPair.
	ErrNoKeyPair = errors.New("local key pair not generated")
)
