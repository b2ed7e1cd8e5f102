package domain

import "encoding/json"

// Room-scoped event names. Payload field names and shapes are part of the
// wire contract and must not change.
const (
	EvtJoinRoom        = "join-room"
	EvtSendMessage     = "send-message"
	EvtEditMessage     = "edit-message"
	EvtDeleteMessage   = "delete-message"
	EvtMessageReaction = "message-reaction"
	EvtMessageRead     = "message-read"
	EvtUserTyping      = "user-typing"
	EvtExchangeKeys    = "exchange-keys"
	EvtUserConnected   = "user-connected"

	// EvtConnected is the transport-level handshake frame carrying the
	// identity the server assigned to this connection. It is sent once,
	// before any room traffic, and is not a room event.
	EvtConnected = "connected"
)

// Frame is the unit the transport moves. Room carries routing scope so the
// relay never has to inspect Data, which may be an encrypted envelope.
type Frame struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoom subscribes the connection to a room.
type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Identity string `json:"identity"`
}

// WireMedia is an encrypted attachment with its declared content digest.
type WireMedia struct {
	MimeType         string `json:"mimeType"`
	EncryptedPayload string `json:"encryptedPayload"`
	DeclaredHash     string `json:"declaredHash"`
}

// SendMessage carries one encrypted chat message.
type SendMessage struct {
	ID             string     `json:"id"`
	RoomID         string     `json:"roomId"`
	Envelope       string     `json:"envelope"`
	SenderIdentity string     `json:"senderIdentity"`
	Timestamp      int64      `json:"timestamp"`
	ReplyTo        string     `json:"replyTo,omitempty"`
	Media          *WireMedia `json:"media,omitempty"`
}

// EditMessage replaces the envelope of an existing message.
type EditMessage struct {
	ID       string `json:"id"`
	RoomID   string `json:"roomId"`
	Envelope string `json:"envelope"`
	EditedAt int64  `json:"editedAt"`
}

// DeleteMessage tombstones a message; nothing is physically removed.
type DeleteMessage struct {
	ID     string `json:"id"`
	RoomID string `json:"roomId"`
}

// MessageReaction toggles one (user, emoji) pair on a message.
//
// UserIdentity is filled in by the sender: the relay treats payloads as
// opaque, so the reactor has to name itself for recipients to maintain the
// reaction set. It is additive to the fixed wire shape.
type MessageReaction struct {
	MessageID    string `json:"messageId"`
	RoomID       string `json:"roomId"`
	Emoji        string `json:"emoji"`
	Remove       bool   `json:"remove,omitempty"`
	UserIdentity string `json:"userIdentity,omitempty"`
}

// MessageRead is an additive read receipt.
type MessageRead struct {
	MessageID    string `json:"messageId"`
	UserIdentity string `json:"userIdentity"`
	RoomID       string `json:"roomId"`
}

// UserTyping signals active composition; receivers expire it after a TTL.
type UserTyping struct {
	UserIdentity string `json:"userIdentity"`
	RoomID       string `json:"roomId"`
}

// ExchangeKeys carries one party's public key to one peer. A non-empty
// RecipientIdentity addresses a specific peer; everyone else ignores it.
type ExchangeKeys struct {
	UserIdentity      string `json:"userIdentity"`
	PublicKey         string `json:"publicKey"`
	RecipientIdentity string `json:"recipientIdentity"`
}

// UserConnected notifies room members that a peer joined, so they can
// proactively exchange keys with it.
type UserConnected struct {
	Identity string `json:"identity"`
}

// Connected is the handshake payload for EvtConnected.
type Connected struct {
	Identity string `json:"identity"`
}
