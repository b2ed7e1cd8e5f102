package crypto

import (
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"parley/internal/domain"
)

// hkdfInfo domain-separates the pairwise message keys from any other use
// of the same agreement.
const hkdfInfo = "parley/pairwise-message-key/v1"

// deriveSharedKey runs X25519 between the local private key and one
// peer's public key, then expands the agreement through HKDF-SHA256 into a
// 32-byte AEAD key. The raw agreement is wiped before returning.
func deriveSharedKey(priv domain.X25519Private, pub domain.X25519Public) ([]byte, error) {
	secret, err := curve25519.X25519(priv.Slice(), pub.Slice())
	if err != nil {
		// Low-order or otherwise unusable peer point.
		return nil, errors.Wrapf(domain.ErrKeyFormat, "x25519: %v", err)
	}
	defer Wipe(secret)

	key := make([]byte, aeadKeySize)
	r := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Wrap(err, "hkdf expand")
	}
	return key, nil
}
