package crypto

import "testing"

func TestDigestDeterministic(t *testing.T) {
	payload := []byte("media bytes")
	first := Digest(payload)
	second := Digest(payload)
	if first != second {
		t.Fatalf("digest not deterministic: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("digest length: got %d hex chars, want 64", len(first))
	}
}

func TestDigestSensitiveToSingleBit(t *testing.T) {
	payload := []byte("media bytes")
	flipped := append([]byte(nil), payload...)
	flipped[0] ^= 0x01
	if Digest(payload) == Digest(flipped) {
		t.Fatal("single-bit change did not alter the digest")
	}
}

func TestVerifyDigest(t *testing.T) {
	payload := []byte("attachment")
	d := Digest(payload)
	if !VerifyDigest(payload, d) {
		t.Fatal("VerifyDigest rejected a correct digest")
	}
	if VerifyDigest([]byte("attachmenT"), d) {
		t.Fatal("VerifyDigest accepted a digest of different bytes")
	}
	if VerifyDigest(payload, d[:32]) {
		t.Fatal("VerifyDigest accepted a truncated digest")
	}
}
