package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"parley/internal/domain"
	"parley/internal/session"
)

// chat <room>: join a room and chat interactively. Messages are
// encrypted pairwise for the selected peer; /peers lists who has
// completed a key exchange.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <room>",
		Short: "Join a room and chat interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), args[0])
		},
	}
}

// repl holds the interactive state for one chat run.
type repl struct {
	room      string
	self      string
	recipient string
	peers     []string
}

// addPeer records a peer identity once and defaults the recipient to the
// first peer seen. It reports whether the identity was new. Empty ids
// and our own identity are ignored.
func (r *repl) addPeer(id string) bool {
	if id == "" || id == r.self {
		return false
	}
	for _, p := range r.peers {
		if p == id {
			return false
		}
	}
	r.peers = append(r.peers, id)
	if r.recipient == "" {
		r.recipient = id
	}
	return true
}

func runChat(ctx context.Context, room string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := wire.Transport.Connect(ctx); err != nil {
		return err
	}
	defer wire.Transport.Close()
	go wire.Session.Run(ctx)

	r := &repl{room: room, self: wire.Transport.Identity()}
	bindPrinters(r)

	if err := wire.Session.JoinRoom(room); err != nil {
		return err
	}
	fmt.Printf("joined %s as %s\n", room, wire.Transport.Identity())
	fmt.Println("type a message, or /help for commands")

	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/"):
			if quit := r.command(line); quit {
				return nil
			}
		default:
			r.say(line)
		}
	}
	return sc.Err()
}

// bindPrinters registers extra event handlers for display. The session
// controller's own handlers run first, so its state is current by the
// time these print.
func bindPrinters(r *repl) {
	wire.Transport.On(domain.EvtUserConnected, func(_ string, data json.RawMessage) {
		var ev domain.UserConnected
		if json.Unmarshal(data, &ev) != nil {
			return
		}
		if r.addPeer(ev.Identity) {
			fmt.Printf("* %s connected\n", ev.Identity)
		}
	})
	// Existing members greet a newcomer with a key offer, not with
	// user-connected; their identities come from the offer itself.
	wire.Transport.On(domain.EvtExchangeKeys, func(_ string, data json.RawMessage) {
		var ev domain.ExchangeKeys
		if json.Unmarshal(data, &ev) != nil {
			return
		}
		if ev.RecipientIdentity != "" && ev.RecipientIdentity != r.self {
			return
		}
		if r.addPeer(ev.UserIdentity) {
			fmt.Printf("* %s present\n", ev.UserIdentity)
		}
	})
	wire.Transport.On(domain.EvtSendMessage, func(_ string, data json.RawMessage) {
		var ev domain.SendMessage
		if json.Unmarshal(data, &ev) != nil {
			return
		}
		for _, m := range wire.Session.Messages(ev.RoomID) {
			if m.ID != ev.ID {
				continue
			}
			printMessage(m)
			return
		}
	})
	wire.Transport.On(domain.EvtUserTyping, func(_ string, data json.RawMessage) {
		var ev domain.UserTyping
		if json.Unmarshal(data, &ev) != nil {
			return
		}
		fmt.Printf("* %s is typing\n", ev.UserIdentity)
	})
}

// shortID is the display form of a message id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printMessage(m domain.Message) {
	switch {
	case m.Deleted:
		fmt.Printf("[%s] %s: (deleted)\n", shortID(m.ID), m.Sender)
	case !m.Decrypted:
		fmt.Printf("[%s] %s: (undecryptable)\n", shortID(m.ID), m.Sender)
	default:
		fmt.Printf("[%s] %s: %s", shortID(m.ID), m.Sender, m.Text)
		if m.Media != nil {
			tag := "verified"
			if !m.Media.Verified {
				tag = "UNVERIFIED"
			}
			fmt.Printf(" (media %s, %d bytes, %s)", m.Media.MimeType, len(m.Media.Data), tag)
		}
		if !m.EditedAt.IsZero() {
			fmt.Print(" (edited)")
		}
		fmt.Println()
	}
}

func (r *repl) say(text string) {
	if r.recipient == "" {
		fmt.Println("no peer yet; wait for someone to join, or pick one with /to")
		return
	}
	if !wire.Session.KeyExchanged(r.recipient) {
		fmt.Printf("key exchange with %s not complete yet\n", r.recipient)
		return
	}
	wire.Session.NotifyTyping(r.room)
	m, err := wire.Session.SendText(r.room, r.recipient, text, session.SendOptions{})
	if err != nil {
		fmt.Println("send failed:", err)
		return
	}
	fmt.Printf("[%s] -> %s (%s)\n", shortID(m.ID), r.recipient, m.Status)
}

// command dispatches one slash command; it reports whether to quit.
func (r *repl) command(line string) bool {
	fields := strings.Fields(line)
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}

	switch fields[0] {
	case "/quit", "/q":
		return true
	case "/help":
		fmt.Println(`/to <peer>            select message recipient
/peers                list connected peers and exchange status
/msgs                 list the room's messages
/edit <id> <text..>   edit one of your messages
/delete <id>          delete one of your messages
/react <id> <emoji>   toggle a reaction on
/unreact <id> <emoji> toggle a reaction off
/read <id>            send a read receipt
/quit                 leave`)
	case "/to":
		if arg(1) == "" {
			fmt.Println("usage: /to <peer>")
			break
		}
		r.recipient = arg(1)
		fmt.Println("now messaging", r.recipient)
	case "/peers":
		for _, p := range r.peers {
			status := "exchanging"
			if wire.Session.KeyExchanged(p) {
				status = "ready"
			}
			fmt.Printf("  %s (%s)\n", p, status)
		}
		if typing := wire.Session.TypingPeers(r.room); len(typing) > 0 {
			fmt.Println("typing:", strings.Join(typing, ", "))
		}
	case "/msgs":
		for _, m := range wire.Session.Messages(r.room) {
			printMessage(m)
		}
	case "/edit":
		if arg(2) == "" {
			fmt.Println("usage: /edit <id> <text..>")
			break
		}
		text := strings.Join(fields[2:], " ")
		if err := wire.Session.EditMessage(r.room, r.expand(arg(1)), text); err != nil {
			fmt.Println("edit failed:", err)
		}
	case "/delete":
		if err := wire.Session.DeleteMessage(r.room, r.expand(arg(1))); err != nil {
			fmt.Println("delete failed:", err)
		}
	case "/react":
		if err := wire.Session.ToggleReaction(r.room, r.expand(arg(1)), arg(2), false); err != nil {
			fmt.Println("react failed:", err)
		}
	case "/unreact":
		if err := wire.Session.ToggleReaction(r.room, r.expand(arg(1)), arg(2), true); err != nil {
			fmt.Println("unreact failed:", err)
		}
	case "/read":
		if err := wire.Session.MarkRead(r.room, r.expand(arg(1))); err != nil {
			fmt.Println("read failed:", err)
		}
	default:
		fmt.Println("unknown command; /help")
	}
	return false
}

// expand resolves an id prefix (as shown in brackets) to a full message
// id; unknown prefixes pass through unchanged so the session reports the
// error.
func (r *repl) expand(prefix string) string {
	if prefix == "" {
		return prefix
	}
	for _, m := range wire.Session.Messages(r.room) {
		if strings.HasPrefix(m.ID, prefix) {
			return m.ID
		}
	}
	return prefix
}
