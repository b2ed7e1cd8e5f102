package session

import (
	jww "github.com/spf13/jwalterweatherman"

	"parley/internal/crypto"
	"parley/internal/domain"
)

// OutgoingMedia is an attachment before encryption.
type OutgoingMedia struct {
	MimeType string
	Payload  []byte
}

// sealMedia encrypts the attachment for the recipient and declares the
// digest of the plaintext, so the receiving side can detect corruption or
// tampering after decryption.
func (c *Controller) sealMedia(m *OutgoingMedia, recipient string) (*domain.WireMedia, error) {
	sealed, err := c.sealer.Encrypt(m.Payload, recipient)
	if err != nil {
		return nil, err
	}
	return &domain.WireMedia{
		MimeType:         m.MimeType,
		EncryptedPayload: sealed,
		DeclaredHash:     crypto.Digest(m.Payload),
	}, nil
}

// openMedia decrypts a received attachment and verifies its declared
// digest. Failures never reject the message: a decryption failure yields
// an empty unverified view, a digest mismatch yields the bytes flagged
// unverified.
func (c *Controller) openMedia(sender string, wm *domain.WireMedia) *domain.MediaView {
	view := &domain.MediaView{
		MimeType:     wm.MimeType,
		DeclaredHash: wm.DeclaredHash,
	}

	data, err := c.sealer.Decrypt(wm.EncryptedPayload, sender)
	if err != nil {
		jww.WARN.Printf("[SESS] media from %q undecryptable: %+v", sender, err)
		return view
	}
	view.Data = data
	view.Verified = crypto.VerifyDigest(data, wm.DeclaredHash)
	if !view.Verified {
		jww.WARN.Printf("[SESS] media from %q failed integrity check: %v",
			sender, domain.ErrHashMismatch)
	}
	return view
}
