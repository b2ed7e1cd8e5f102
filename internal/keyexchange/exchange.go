package keyexchange

import (
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"parley/internal/domain"
)

// Protocol runs the per-session key exchange over a transport. Per peer
// the state only moves forward: Unknown until a key arrives or is sent,
// KeyReceived once the peer's key is in the ring. Duplicate inbound keys
// overwrite silently; the local key is sent to each peer at most once per
// session, which is what stops two well-behaved peers from ping-ponging
// keys forever.
type Protocol struct {
	keys      domain.KeyRing
	transport domain.Transport

	mu   sync.Mutex
	sent map[string]bool // peers our key was already sent to
}

func New(keys domain.KeyRing, transport domain.Transport) *Protocol {
	return &Protocol{
		keys:      keys,
		transport: transport,
		sent:      make(map[string]bool),
	}
}

// PeerConnected reacts to a user-connected notification by offering our
// public key to the new peer, addressed by identity within the room.
func (p *Protocol) PeerConnected(room, peer string) {
	if peer == "" || peer == p.transport.Identity() {
		return
	}
	if err := p.sendKey(room, peer); err != nil {
		jww.WARN.Printf("[KEX] offer to %q failed: %+v", peer, err)
	}
}

// HandleExchange processes an inbound exchange-keys event. Keys addressed
// to someone else are ignored (the relay fans events out room-wide and
// never inspects them, so addressing is resolved here). After a
// successful import we reply with our own key unless this peer already
// has it.
func (p *Protocol) HandleExchange(room string, ev domain.ExchangeKeys) error {
	me := p.transport.Identity()
	if ev.RecipientIdentity != "" && ev.RecipientIdentity != me {
		return nil
	}
	if ev.UserIdentity == "" || ev.UserIdentity == me {
		return nil
	}

	if err := p.keys.ImportPeerKey(ev.UserIdentity, ev.PublicKey); err != nil {
		// A bad key from one peer must not take down the handshake for
		// anyone else; reject, log, carry on.
		jww.WARN.Printf("[KEX] rejected key from %q: %+v", ev.UserIdentity, err)
		return err
	}
	jww.DEBUG.Printf("[KEX] stored key for %q", ev.UserIdentity)

	if err := p.sendKey(room, ev.UserIdentity); err != nil {
		return errors.Wrapf(err, "reply to %q", ev.UserIdentity)
	}
	return nil
}

// Known reports whether key exchange with the peer has completed.
func (p *Protocol) Known(peer string) bool { return p.keys.HasPeer(peer) }

// sendKey emits our public key to one peer, at most once per session.
func (p *Protocol) sendKey(room, peer string) error {
	p.mu.Lock()
	if p.sent[peer] {
		p.mu.Unlock()
		return nil
	}
	p.sent[peer] = true
	p.mu.Unlock()

	pub, err := p.keys.ExportPublicKey()
	if err != nil {
		p.forget(peer)
		return errors.Wrap(err, "export public key")
	}
	ev := domain.ExchangeKeys{
		UserIdentity:      p.transport.Identity(),
		PublicKey:         pub,
		RecipientIdentity: peer,
	}
	if err := p.transport.Emit(domain.EvtExchangeKeys, room, ev); err != nil {
		p.forget(peer)
		return errors.Wrap(err, "emit exchange-keys")
	}
	jww.DEBUG.Printf("[KEX] sent local key to %q", peer)
	return nil
}

// forget clears the sent mark so a failed offer can be retried on the
// next trigger.
func (p *Protocol) forget(peer string) {
	p.mu.Lock()
	delete(p.sent, peer)
	p.mu.Unlock()
}
