package app

import (
	"path/filepath"

	"github.com/pkg/errors"

	"parley/internal/crypto"
	"parley/internal/domain"
	"parley/internal/notary"
	"parley/internal/session"
	"parley/internal/store"
	"parley/internal/transport"
)

// Wire bundles the client's collaborators for the CLI.
type Wire struct {
	Keys      *crypto.KeyStore
	Transport domain.Transport
	Session   *session.Controller
	History   domain.History
}

// NewWire constructs the dependency graph from cfg. The transport is not
// connected yet; callers decide when to dial.
func NewWire(cfg Config) (*Wire, error) {
	keys := crypto.NewKeyStore()
	if err := keys.GenerateKeyPair(); err != nil {
		return nil, errors.Wrap(err, "generate keypair")
	}

	var opts session.Options
	if !cfg.NoHistory {
		hist, err := store.NewFileBacked(filepath.Join(cfg.Home, "history"), cfg.HistoryPass)
		if err != nil {
			return nil, errors.Wrap(err, "open history")
		}
		opts.History = hist
	}
	if cfg.NotaryURL != "" {
		opts.Notary = notary.NewHTTP(cfg.NotaryURL)
	}

	ws := transport.NewWS(cfg.ServerURL)
	ctrl := session.New(keys, crypto.NewCipher(keys), ws, opts)

	return &Wire{
		Keys:      keys,
		Transport: ws,
		Session:   ctrl,
		History:   opts.History,
	}, nil
}
