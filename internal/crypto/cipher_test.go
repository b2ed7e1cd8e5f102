package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"

	"parley/internal/domain"
)

// pair wires two key stores together as if a key exchange completed.
func pair(t *testing.T) (alice, bob *Cipher, aliceKeys, bobKeys *KeyStore) {
	t.Helper()

	aliceKeys = NewKeyStore()
	bobKeys = NewKeyStore()
	if err := aliceKeys.GenerateKeyPair(); err != nil {
		t.Fatalf("alice GenerateKeyPair: %v", err)
	}
	if err := bobKeys.GenerateKeyPair(); err != nil {
		t.Fatalf("bob GenerateKeyPair: %v", err)
	}

	alicePub, err := aliceKeys.ExportPublicKey()
	if err != nil {
		t.Fatalf("alice ExportPublicKey: %v", err)
	}
	bobPub, err := bobKeys.ExportPublicKey()
	if err != nil {
		t.Fatalf("bob ExportPublicKey: %v", err)
	}
	if err := aliceKeys.ImportPeerKey("bob", bobPub); err != nil {
		t.Fatalf("alice ImportPeerKey: %v", err)
	}
	if err := bobKeys.ImportPeerKey("alice", alicePub); err != nil {
		t.Fatalf("bob ImportPeerKey: %v", err)
	}
	return NewCipher(aliceKeys), NewCipher(bobKeys), aliceKeys, bobKeys
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	alice, bob, _, _ := pair(t)

	plaintext := []byte("hello from alice")
	env, err := alice.Encrypt(plaintext, "bob")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := bob.Decrypt(env, "alice")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("round trip: got %q, want %q", got, plaintext)
	}
}

func TestEncryptDrawsFreshNonce(t *testing.T) {
	alice, _, _, _ := pair(t)

	plaintext := []byte("same plaintext")
	first, err := alice.Encrypt(plaintext, "bob")
	if err != nil {
		t.Fatalf("first Encrypt: %v", err)
	}
	second, err := alice.Encrypt(plaintext, "bob")
	if err != nil {
		t.Fatalf("second Encrypt: %v", err)
	}
	if first == second {
		t.Fatal("two encryptions of the same plaintext produced identical envelopes")
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	alice, bob, _, _ := pair(t)

	env, err := alice.Encrypt([]byte("payload"), "bob")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(env)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}

	// Flip one bit in every position, covering nonce, ciphertext and tag.
	for i := range raw {
		mangled := append([]byte(nil), raw...)
		mangled[i] ^= 0x01
		_, err := bob.Decrypt(base64.StdEncoding.EncodeToString(mangled), "alice")
		if !errors.Is(err, domain.ErrDecrypt) {
			t.Fatalf("bit flip at %d: got err %v, want ErrDecrypt", i, err)
		}
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	_, bob, _, _ := pair(t)

	for _, env := range []string{"", "!!!not base64!!!", base64.StdEncoding.EncodeToString([]byte("short"))} {
		if _, err := bob.Decrypt(env, "alice"); !errors.Is(err, domain.ErrDecrypt) {
			t.Fatalf("envelope %q: got err %v, want ErrDecrypt", env, err)
		}
	}
}

func TestUnknownPeerBeforeExchange(t *testing.T) {
	keys := NewKeyStore()
	if err := keys.GenerateKeyPair(); err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	c := NewCipher(keys)

	if _, err := c.Encrypt([]byte("x"), "stranger"); !errors.Is(err, domain.ErrUnknownPeer) {
		t.Fatalf("Encrypt: got err %v, want ErrUnknownPeer", err)
	}
	if _, err := c.Decrypt("AAAA", "stranger"); !errors.Is(err, domain.ErrUnknownPeer) {
		t.Fatalf("Decrypt: got err %v, want ErrUnknownPeer", err)
	}
}

func TestReimportedPeerKeyInvalidatesCache(t *testing.T) {
	alice, bob, aliceKeys, bobKeys := pair(t)

	env, err := alice.Encrypt([]byte("before rekey"), "bob")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := bob.Decrypt(env, "alice"); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}

	// Bob rotates: a new session key pair under the same identity.
	freshKeys := NewKeyStore()
	if err := freshKeys.GenerateKeyPair(); err != nil {
		t.Fatalf("fresh GenerateKeyPair: %v", err)
	}
	freshPub, err := freshKeys.ExportPublicKey()
	if err != nil {
		t.Fatalf("fresh ExportPublicKey: %v", err)
	}
	if err := aliceKeys.ImportPeerKey("bob", freshPub); err != nil {
		t.Fatalf("re-import: %v", err)
	}

	alicePub, _ := aliceKeys.ExportPublicKey()
	if err := freshKeys.ImportPeerKey("alice", alicePub); err != nil {
		t.Fatalf("fresh ImportPeerKey: %v", err)
	}
	freshCipher := NewCipher(freshKeys)

	env2, err := alice.Encrypt([]byte("after rekey"), "bob")
	if err != nil {
		t.Fatalf("Encrypt after rekey: %v", err)
	}
	if got, err := freshCipher.Decrypt(env2, "alice"); err != nil || string(got) != "after rekey" {
		t.Fatalf("Decrypt after rekey: got %q, %v", got, err)
	}

	// The old bob key store must no longer open alice's traffic.
	if _, err := bob.Decrypt(env2, "alice"); !errors.Is(err, domain.ErrDecrypt) {
		t.Fatalf("stale peer decrypt: got err %v, want ErrDecrypt", err)
	}
	_ = bobKeys
}
