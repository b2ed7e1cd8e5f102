package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"

	"parley/internal/domain"
)

const (
	aeadKeySize = chacha20poly1305.KeySize
	nonceSize   = chacha20poly1305.NonceSize
)

// Cipher authenticated-encrypts payloads for one pairwise peer at a time.
// Envelopes go over the wire as base64(nonce || ciphertext+tag): a single
// opaque string. A fresh random nonce is drawn per call, so two
// encryptions of the same plaintext never produce the same envelope.
type Cipher struct {
	keys *KeyStore

	mu    sync.Mutex
	cache map[string]cachedKey
}

// cachedKey remembers which peer public key the AEAD key was derived
// from, so a re-imported peer key invalidates the entry.
type cachedKey struct {
	peerPub domain.X25519Public
	aead    []byte
}

func NewCipher(keys *KeyStore) *Cipher {
	return &Cipher{
		keys:  keys,
		cache: make(map[string]cachedKey),
	}
}

// Encrypt seals plaintext for the peer.
func (c *Cipher) Encrypt(plaintext []byte, peer string) (string, error) {
	key, err := c.sharedKey(peer)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return "", errors.Wrap(err, "aead init")
	}

	out := make([]byte, nonceSize, nonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out[:nonceSize]); err != nil {
		return "", errors.Wrap(err, "draw nonce")
	}
	out = aead.Seal(out, out[:nonceSize], plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens an envelope from the peer. Any malformation or tag
// mismatch fails with ErrDecrypt; corrupted plaintext is never returned.
func (c *Cipher) Decrypt(envelope string, peer string) ([]byte, error) {
	key, err := c.sharedKey(peer)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrDecrypt, "envelope encoding: %v", err)
	}
	if len(raw) < nonceSize {
		return nil, errors.Wrapf(domain.ErrDecrypt, "envelope too short: %d bytes", len(raw))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.Wrap(err, "aead init")
	}
	plain, err := aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrDecrypt, "peer %q", peer)
	}
	return plain, nil
}

// sharedKey returns the cached AEAD key for the peer, re-deriving when the
// peer's public key entry has changed since the cache was filled.
func (c *Cipher) sharedKey(peer string) ([]byte, error) {
	priv, pub, err := c.keys.keyMaterial(peer)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.cache[peer]; ok && e.peerPub == pub {
		return e.aead, nil
	}
	key, err := deriveSharedKey(priv, pub)
	if err != nil {
		return nil, err
	}
	c.cache[peer] = cachedKey{peerPub: pub, aead: key}
	return key, nil
}

var _ domain.Sealer = (*Cipher)(nil)
