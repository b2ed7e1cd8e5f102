package domain

import "time"

// MessageStatus tracks the local lifecycle of a sent message.
type MessageStatus int

const (
	// StatusComposed means the message exists locally but has not been
	// handed to the transport yet.
	StatusComposed MessageStatus = iota
	// StatusSent means the message was emitted and optimistically rendered.
	StatusSent
	// StatusAcknowledged means at least one recipient sent a read receipt.
	StatusAcknowledged
)

func (s MessageStatus) String() string {
	switch s {
	case StatusComposed:
		return "composed"
	case StatusSent:
		return "sent"
	case StatusAcknowledged:
		return "acknowledged"
	}
	return "unknown"
}

// Reaction is one (user, emoji) pair. The pair is unique per message.
type Reaction struct {
	UserIdentity string
	Emoji        string
}

// MediaView is a received attachment after decryption and integrity
// verification. Data is nil when decryption failed; Verified is false when
// either decryption failed or the recomputed digest differs from the
// declared one.
type MediaView struct {
	MimeType     string
	Data         []byte
	DeclaredHash string
	Verified     bool
}

// Message is the per-message local state kept by the session controller.
// Only the sender mutates Text/Deleted; reactions and read receipts are
// additive and may come from any room member. Deleted messages are
// tombstoned: the entry stays, the content is cleared.
type Message struct {
	ID        string
	RoomID    string
	Sender    string
	Text      string
	Decrypted bool
	Timestamp time.Time
	ReplyTo   string
	Media     *MediaView
	EditedAt  time.Time
	Deleted   bool
	Reactions []Reaction
	ReadBy    []string
	Status    MessageStatus

	// Recipient is the designated peer an own message was encrypted for.
	// Local bookkeeping only; edits re-encrypt for the same peer.
	Recipient string
}

// HasReaction reports whether the (user, emoji) pair is present.
func (m *Message) HasReaction(user, emoji string) bool {
	for _, r := range m.Reactions {
		if r.UserIdentity == user && r.Emoji == emoji {
			return true
		}
	}
	return false
}

// ReadBySet reports whether the identity already acknowledged the message.
func (m *Message) ReadBySet(identity string) bool {
	for _, id := range m.ReadBy {
		if id == identity {
			return true
		}
	}
	return false
}

// HistoryRecord is what the persistence collaborator keeps: the envelope
// exactly as it crossed the wire, never decrypted.
type HistoryRecord struct {
	ID        string     `json:"id"`
	RoomID    string     `json:"roomId"`
	Sender    string     `json:"senderIdentity"`
	Envelope  string     `json:"envelope"`
	Timestamp int64      `json:"timestamp"`
	ReplyTo   string     `json:"replyTo,omitempty"`
	Media     *WireMedia `json:"media,omitempty"`
}
