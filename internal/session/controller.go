package session

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"parley/internal/domain"
	"parley/internal/keyexchange"
)

const (
	// typingTTL is how long a peer's typing flag survives after the last
	// signal; typingSweep is the purge period; typingDebounce bounds how
	// often we emit our own signal while composing.
	typingTTL      = 3 * time.Second
	typingSweep    = time.Second
	typingDebounce = 3 * time.Second
)

var (
	// ErrNotOwnMessage is returned when editing or deleting a message this
	// session did not author. The relay is trusted to enforce the same on
	// inbound mutations; see the delivered-event handlers.
	ErrNotOwnMessage = errors.New("can only mutate own messages")

	// ErrUnknownMessage is returned for operations on message ids the
	// controller has never seen.
	ErrUnknownMessage = errors.New("unknown message id")

	// ErrMessageDeleted is returned when mutating a tombstoned message.
	ErrMessageDeleted = errors.New("message was deleted")
)

// Options carries the optional collaborators and test seams.
type Options struct {
	History domain.History // nil: no local history
	Notary  domain.Notary  // nil: no attestation calls
	Now     func() time.Time
}

// Controller is the client-side chat orchestrator. All state access goes
// through one mutex; inbound events arrive serially from the transport's
// dispatch goroutine, while CLI calls come from the caller's goroutine.
type Controller struct {
	keys      domain.KeyRing
	sealer    domain.Sealer
	exchange  *keyexchange.Protocol
	transport domain.Transport
	history   domain.History
	notary    domain.Notary
	now       func() time.Time

	typing *TypingTracker

	mu        sync.Mutex
	msgs      map[string]*domain.Message
	order     map[string][]string // roomID -> message ids in arrival order
	lastTyped map[string]time.Time
}

func New(keys domain.KeyRing, sealer domain.Sealer, tr domain.Transport, opts Options) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		keys:      keys,
		sealer:    sealer,
		exchange:  keyexchange.New(keys, tr),
		transport: tr,
		history:   opts.History,
		notary:    opts.Notary,
		now:       now,
		typing:    NewTypingTracker(typingTTL, now),
		msgs:      make(map[string]*domain.Message),
		order:     make(map[string][]string),
		lastTyped: make(map[string]time.Time),
	}
	c.bind()
	return c
}

// Run drives the typing-expiry sweep until the context is cancelled.
func (c *Controller) Run(ctx context.Context) {
	c.typing.Run(ctx, typingSweep)
}

// JoinRoom subscribes to a room. Existing members are notified and will
// offer their keys; our side answers through the exchange protocol.
func (c *Controller) JoinRoom(roomID string) error {
	ev := domain.JoinRoom{RoomID: roomID, Identity: c.transport.Identity()}
	return c.transport.Emit(domain.EvtJoinRoom, roomID, ev)
}

// SendOptions are the optional parts of a send.
type SendOptions struct {
	ReplyTo string
	Media   *OutgoingMedia
}

// SendText encrypts text for the designated recipient, optionally seals a
// media attachment, emits the message and optimistically appends it to
// the local list. The returned copy reflects the post-emit status.
func (c *Controller) SendText(roomID, recipient, text string, opts SendOptions) (domain.Message, error) {
	envelope, err := c.sealer.Encrypt([]byte(text), recipient)
	if err != nil {
		return domain.Message{}, errors.Wrapf(err, "encrypt for %q", recipient)
	}

	var media *domain.WireMedia
	if opts.Media != nil {
		if media, err = c.sealMedia(opts.Media, recipient); err != nil {
			return domain.Message{}, errors.Wrap(err, "seal media")
		}
	}

	ts := c.now()
	msg := &domain.Message{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Sender:    c.transport.Identity(),
		Text:      text,
		Decrypted: true,
		Timestamp: ts,
		ReplyTo:   opts.ReplyTo,
		Status:    domain.StatusComposed,
		Recipient: recipient,
	}
	if opts.Media != nil {
		msg.Media = &domain.MediaView{
			MimeType:     opts.Media.MimeType,
			Data:         opts.Media.Payload,
			DeclaredHash: media.DeclaredHash,
			Verified:     true,
		}
	}

	// Optimistic append before any acknowledgment.
	c.mu.Lock()
	c.msgs[msg.ID] = msg
	c.order[roomID] = append(c.order[roomID], msg.ID)
	c.mu.Unlock()

	ev := domain.SendMessage{
		ID:             msg.ID,
		RoomID:         roomID,
		Envelope:       envelope,
		SenderIdentity: msg.Sender,
		Timestamp:      ts.UnixMilli(),
		ReplyTo:        opts.ReplyTo,
		Media:          media,
	}
	if err := c.transport.Emit(domain.EvtSendMessage, roomID, ev); err != nil {
		return c.snapshot(msg.ID), err
	}

	c.mu.Lock()
	msg.Status = domain.StatusSent
	c.mu.Unlock()

	c.record(domain.HistoryRecord{
		ID: msg.ID, RoomID: roomID, Sender: msg.Sender,
		Envelope: envelope, Timestamp: ts.UnixMilli(),
		ReplyTo: opts.ReplyTo, Media: media,
	})
	if media != nil {
		c.attest(msg.ID, media.DeclaredHash)
	}
	return c.snapshot(msg.ID), nil
}

// EditMessage re-encrypts new text for, and only for, a message this
// session authored, then announces the edit.
func (c *Controller) EditMessage(roomID, id, text string) error {
	c.mu.Lock()
	m, ok := c.msgs[id]
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(ErrUnknownMessage, "%s", id)
	}
	if m.Sender != c.transport.Identity() {
		c.mu.Unlock()
		return ErrNotOwnMessage
	}
	if m.Deleted {
		c.mu.Unlock()
		return ErrMessageDeleted
	}
	recipient := m.Recipient
	c.mu.Unlock()

	envelope, err := c.sealer.Encrypt([]byte(text), recipient)
	if err != nil {
		return errors.Wrapf(err, "encrypt edit for %q", recipient)
	}

	at := c.now()
	ev := domain.EditMessage{ID: id, RoomID: roomID, Envelope: envelope, EditedAt: at.UnixMilli()}
	if err := c.transport.Emit(domain.EvtEditMessage, roomID, ev); err != nil {
		return err
	}

	c.mu.Lock()
	m.Text = text
	m.EditedAt = at
	c.mu.Unlock()
	return nil
}

// DeleteMessage tombstones a message this session authored: the entry
// stays in the list, the content is hidden everywhere.
func (c *Controller) DeleteMessage(roomID, id string) error {
	c.mu.Lock()
	m, ok := c.msgs[id]
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(ErrUnknownMessage, "%s", id)
	}
	if m.Sender != c.transport.Identity() {
		c.mu.Unlock()
		return ErrNotOwnMessage
	}
	c.mu.Unlock()

	ev := domain.DeleteMessage{ID: id, RoomID: roomID}
	if err := c.transport.Emit(domain.EvtDeleteMessage, roomID, ev); err != nil {
		return err
	}

	c.mu.Lock()
	tombstone(m)
	c.mu.Unlock()
	return nil
}

// ToggleReaction adds or removes our (identity, emoji) pair on a message.
// Adding a present pair and removing an absent one are no-ops and emit
// nothing.
func (c *Controller) ToggleReaction(roomID, id, emoji string, remove bool) error {
	if err := ValidateReaction(emoji); err != nil {
		return err
	}
	me := c.transport.Identity()

	c.mu.Lock()
	m, ok := c.msgs[id]
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(ErrUnknownMessage, "%s", id)
	}
	changed := applyReaction(m, me, emoji, remove)
	c.mu.Unlock()

	if !changed {
		return nil
	}
	ev := domain.MessageReaction{
		MessageID: id, RoomID: roomID, Emoji: emoji,
		Remove: remove, UserIdentity: me,
	}
	return c.transport.Emit(domain.EvtMessageReaction, roomID, ev)
}

// MarkRead records that we read a message and emits the receipt.
func (c *Controller) MarkRead(roomID, id string) error {
	me := c.transport.Identity()

	c.mu.Lock()
	m, ok := c.msgs[id]
	if !ok {
		c.mu.Unlock()
		return errors.Wrapf(ErrUnknownMessage, "%s", id)
	}
	if m.ReadBySet(me) {
		c.mu.Unlock()
		return nil
	}
	m.ReadBy = append(m.ReadBy, me)
	c.mu.Unlock()

	ev := domain.MessageRead{MessageID: id, UserIdentity: me, RoomID: roomID}
	return c.transport.Emit(domain.EvtMessageRead, roomID, ev)
}

// NotifyTyping emits at most one typing signal per debounce window while
// the user is composing.
func (c *Controller) NotifyTyping(roomID string) {
	now := c.now()

	c.mu.Lock()
	if last, ok := c.lastTyped[roomID]; ok && now.Sub(last) < typingDebounce {
		c.mu.Unlock()
		return
	}
	c.lastTyped[roomID] = now
	c.mu.Unlock()

	ev := domain.UserTyping{UserIdentity: c.transport.Identity(), RoomID: roomID}
	if err := c.transport.Emit(domain.EvtUserTyping, roomID, ev); err != nil {
		// A failed emit must not open a suppression window; clear the
		// stamp so the next signal goes out.
		c.mu.Lock()
		delete(c.lastTyped, roomID)
		c.mu.Unlock()
		jww.DEBUG.Printf("[SESS] typing emit: %v", err)
	}
}

// Messages returns a copy of the room's message list in arrival order.
func (c *Controller) Messages(roomID string) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, 0, len(c.order[roomID]))
	for _, id := range c.order[roomID] {
		out = append(out, copyMessage(c.msgs[id]))
	}
	return out
}

// TypingPeers returns who is currently typing in the room, sorted for
// stable display.
func (c *Controller) TypingPeers(roomID string) []string {
	peers := c.typing.Active(roomID)
	sort.Strings(peers)
	return peers
}

// KeyExchanged reports whether the pairwise handshake with the peer is
// complete, i.e. whether SendText to that peer can succeed.
func (c *Controller) KeyExchanged(peer string) bool { return c.exchange.Known(peer) }

// ---------- inbound events ----------

func (c *Controller) bind() {
	c.transport.On(domain.EvtUserConnected, c.onUserConnected)
	c.transport.On(domain.EvtExchangeKeys, c.onExchangeKeys)
	c.transport.On(domain.EvtSendMessage, c.onSendMessage)
	c.transport.On(domain.EvtEditMessage, c.onEditMessage)
	c.transport.On(domain.EvtDeleteMessage, c.onDeleteMessage)
	c.transport.On(domain.EvtMessageReaction, c.onMessageReaction)
	c.transport.On(domain.EvtMessageRead, c.onMessageRead)
	c.transport.On(domain.EvtUserTyping, c.onUserTyping)
}

// decode unmarshals one event payload. Bad payloads are logged and
// dropped; one malformed event never takes down the session.
func decode[T any](event string, data json.RawMessage) (T, bool) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		jww.WARN.Printf("[SESS] bad %s payload: %v", event, err)
		return v, false
	}
	return v, true
}

func (c *Controller) onUserConnected(room string, data json.RawMessage) {
	ev, ok := decode[domain.UserConnected](domain.EvtUserConnected, data)
	if !ok {
		return
	}
	c.exchange.PeerConnected(room, ev.Identity)
}

func (c *Controller) onExchangeKeys(room string, data json.RawMessage) {
	ev, ok := decode[domain.ExchangeKeys](domain.EvtExchangeKeys, data)
	if !ok {
		return
	}
	// Errors are already logged by the protocol; a bad key from one peer
	// must not affect the rest of the session.
	_ = c.exchange.HandleExchange(room, ev)
}

func (c *Controller) onSendMessage(_ string, data json.RawMessage) {
	ev, ok := decode[domain.SendMessage](domain.EvtSendMessage, data)
	if !ok {
		return
	}

	msg := &domain.Message{
		ID:        ev.ID,
		RoomID:    ev.RoomID,
		Sender:    ev.SenderIdentity,
		Timestamp: time.UnixMilli(ev.Timestamp),
		ReplyTo:   ev.ReplyTo,
	}

	plain, err := c.sealer.Decrypt(ev.Envelope, ev.SenderIdentity)
	if err != nil {
		// Keep a placeholder so the user sees a message was lost instead
		// of it going silently missing.
		jww.WARN.Printf("[SESS] message %s from %q undecryptable: %+v", ev.ID, ev.SenderIdentity, err)
	} else {
		msg.Text = string(plain)
		msg.Decrypted = true
	}
	if ev.Media != nil {
		msg.Media = c.openMedia(ev.SenderIdentity, ev.Media)
	}

	c.mu.Lock()
	if _, dup := c.msgs[ev.ID]; dup {
		c.mu.Unlock()
		return
	}
	c.msgs[ev.ID] = msg
	c.order[ev.RoomID] = append(c.order[ev.RoomID], ev.ID)
	c.mu.Unlock()

	// A message from a peer supersedes their typing flag.
	c.typing.Clear(ev.RoomID, ev.SenderIdentity)

	c.record(domain.HistoryRecord{
		ID: ev.ID, RoomID: ev.RoomID, Sender: ev.SenderIdentity,
		Envelope: ev.Envelope, Timestamp: ev.Timestamp,
		ReplyTo: ev.ReplyTo, Media: ev.Media,
	})
}

// onEditMessage applies a relayed edit. Authorship is not re-checked
// here: the relay only fans events out within the room, and edit
// authorization is trust-on-relay in this protocol.
func (c *Controller) onEditMessage(_ string, data json.RawMessage) {
	ev, ok := decode[domain.EditMessage](domain.EvtEditMessage, data)
	if !ok {
		return
	}

	c.mu.Lock()
	m, exists := c.msgs[ev.ID]
	if !exists || m.Deleted {
		c.mu.Unlock()
		return
	}
	sender := m.Sender
	c.mu.Unlock()

	plain, err := c.sealer.Decrypt(ev.Envelope, sender)

	c.mu.Lock()
	defer c.mu.Unlock()
	m.EditedAt = time.UnixMilli(ev.EditedAt)
	if err != nil {
		jww.WARN.Printf("[SESS] edit of %s undecryptable: %+v", ev.ID, err)
		m.Text = ""
		m.Decrypted = false
		return
	}
	m.Text = string(plain)
	m.Decrypted = true
}

func (c *Controller) onDeleteMessage(_ string, data json.RawMessage) {
	ev, ok := decode[domain.DeleteMessage](domain.EvtDeleteMessage, data)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, exists := c.msgs[ev.ID]; exists {
		tombstone(m)
	}
}

func (c *Controller) onMessageReaction(_ string, data json.RawMessage) {
	ev, ok := decode[domain.MessageReaction](domain.EvtMessageReaction, data)
	if !ok || ev.UserIdentity == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, exists := c.msgs[ev.MessageID]; exists {
		applyReaction(m, ev.UserIdentity, ev.Emoji, ev.Remove)
	}
}

func (c *Controller) onMessageRead(_ string, data json.RawMessage) {
	ev, ok := decode[domain.MessageRead](domain.EvtMessageRead, data)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, exists := c.msgs[ev.MessageID]
	if !exists || m.ReadBySet(ev.UserIdentity) {
		return
	}
	m.ReadBy = append(m.ReadBy, ev.UserIdentity)
	if m.Sender == c.transport.Identity() && m.Status == domain.StatusSent {
		m.Status = domain.StatusAcknowledged
	}
}

func (c *Controller) onUserTyping(_ string, data json.RawMessage) {
	ev, ok := decode[domain.UserTyping](domain.EvtUserTyping, data)
	if !ok {
		return
	}
	c.typing.Touch(ev.RoomID, ev.UserIdentity)
}

// ---------- helpers ----------

// applyReaction mutates the reaction set with toggle semantics and
// reports whether anything changed.
func applyReaction(m *domain.Message, user, emoji string, remove bool) bool {
	if remove {
		for i, r := range m.Reactions {
			if r.UserIdentity == user && r.Emoji == emoji {
				m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				return true
			}
		}
		return false
	}
	if m.HasReaction(user, emoji) {
		return false
	}
	m.Reactions = append(m.Reactions, domain.Reaction{UserIdentity: user, Emoji: emoji})
	return true
}

// tombstone hides a message's content but keeps the entry.
func tombstone(m *domain.Message) {
	m.Deleted = true
	m.Text = ""
	m.Media = nil
	m.Decrypted = false
}

// copyMessage detaches a message from live controller state. Reactions
// and ReadBy keep mutating after hand-out, so they are cloned; Media is
// written once on receipt and never touched again.
func copyMessage(m *domain.Message) domain.Message {
	out := *m
	out.Reactions = append([]domain.Reaction(nil), m.Reactions...)
	out.ReadBy = append([]string(nil), m.ReadBy...)
	return out
}

func (c *Controller) snapshot(id string) domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyMessage(c.msgs[id])
}

// record hands an envelope to the persistence collaborator, if any.
func (c *Controller) record(rec domain.HistoryRecord) {
	if c.history == nil {
		return
	}
	if err := c.history.SaveEnvelope(rec); err != nil {
		jww.WARN.Printf("[SESS] history save %s: %+v", rec.ID, err)
	}
}

// attest notarizes (messageID, digest) fire-and-forget; failures are
// logged and never block delivery.
func (c *Controller) attest(messageID, digest string) {
	if c.notary == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		ref, err := c.notary.Attest(ctx, messageID, digest)
		if err != nil {
			jww.WARN.Printf("[NTRY] attest %s: %+v", messageID, err)
			return
		}
		jww.DEBUG.Printf("[NTRY] attested %s as %s", messageID, ref)
	}()
}
