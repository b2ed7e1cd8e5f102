package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/curve25519"

	"parley/internal/domain"
)

// KeyStore owns the session key pair and the peer public key directory.
// The key pair is generated once per session; peer entries grow
// monotonically as exchanges complete and are only ever overwritten, never
// removed. Safe for concurrent use.
type KeyStore struct {
	mu    sync.RWMutex
	ready bool
	priv  domain.X25519Private
	pub   domain.X25519Public
	peers map[string]domain.X25519Public
}

func NewKeyStore() *KeyStore {
	return &KeyStore{peers: make(map[string]domain.X25519Public)}
}

// GenerateKeyPair creates a fresh Curve25519 key pair, clamped per
// RFC 7748. Calling it twice would silently invalidate every shared secret
// derived so far, so a second call fails with ErrKeyPairExists.
func (s *KeyStore) GenerateKeyPair() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return domain.ErrKeyPairExists
	}
	if _, err := rand.Read(s.priv[:]); err != nil {
		return errors.Wrap(err, "generate private key")
	}
	clamp(&s.priv)

	pb, err := curve25519.X25519(s.priv.Slice(), curve25519.Basepoint)
	if err != nil {
		return errors.Wrap(err, "derive public key")
	}
	copy(s.pub[:], pb)
	s.ready = true
	return nil
}

// ExportPublicKey returns the local public key as standard base64.
func (s *KeyStore) ExportPublicKey() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return "", domain.ErrNoKeyPair
	}
	return base64.StdEncoding.EncodeToString(s.pub.Slice()), nil
}

// Fingerprint returns a short hex fingerprint of the local public key for
// out-of-band comparison.
func (s *KeyStore) Fingerprint() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return "", domain.ErrNoKeyPair
	}
	sum := sha256.Sum256(s.pub.Slice())
	return hex.EncodeToString(sum[:10]), nil
}

// FingerprintKey returns the fingerprint of an encoded public key, for
// checking a peer's key against what they read out over a trusted
// channel.
func FingerprintKey(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", errors.Wrapf(domain.ErrKeyFormat, "%v", err)
	}
	if len(raw) != 32 {
		return "", errors.Wrapf(domain.ErrKeyFormat, "want 32 bytes, got %d", len(raw))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:10]), nil
}

// ImportPeerKey decodes and stores a peer's public key. Importing the same
// identity again overwrites the entry; the cipher notices the change and
// re-derives. Malformed input fails with ErrKeyFormat and leaves the
// directory untouched.
func (s *KeyStore) ImportPeerKey(identity, encoded string) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.Wrapf(domain.ErrKeyFormat, "peer %q: %v", identity, err)
	}
	if len(raw) != 32 {
		return errors.Wrapf(domain.ErrKeyFormat, "peer %q: want 32 bytes, got %d", identity, len(raw))
	}
	if allZero(raw) {
		return errors.Wrapf(domain.ErrKeyFormat, "peer %q: zero point", identity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[identity] = domain.MustX25519Public(raw)
	return nil
}

// HasPeer reports whether a public key is on file for the identity.
func (s *KeyStore) HasPeer(identity string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.peers[identity]
	return ok
}

// PeerKey returns the stored key for the identity.
func (s *KeyStore) PeerKey(identity string) (domain.X25519Public, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pub, ok := s.peers[identity]
	return pub, ok
}

// keyMaterial hands the cipher what it needs for one derivation.
func (s *KeyStore) keyMaterial(peer string) (domain.X25519Private, domain.X25519Public, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return domain.X25519Private{}, domain.X25519Public{}, domain.ErrNoKeyPair
	}
	pub, ok := s.peers[peer]
	if !ok {
		return domain.X25519Private{}, domain.X25519Public{}, errors.Wrapf(domain.ErrUnknownPeer, "peer %q", peer)
	}
	return s.priv, pub, nil
}

func clamp(k *domain.X25519Private) {
	kb := k[:]
	kb[0] &= 248
	kb[31] &= 127
	kb[31] |= 64
}

func allZero(b []byte) bool {
	var acc byte
	for _, v := range b {
		acc |= v
	}
	return acc == 0
}

var _ domain.KeyRing = (*KeyStore)(nil)
