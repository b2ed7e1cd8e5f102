package session

import (
	"github.com/forPelevin/gomoji"
	"github.com/pkg/errors"
)

// ErrInvalidReaction is returned when a reaction is not exactly one emoji.
var ErrInvalidReaction = errors.New("reaction must be a single emoji")

// ValidateReaction checks that the reaction contains one emoji and
// nothing else.
func ValidateReaction(reaction string) error {
	found := gomoji.CollectAll(reaction)
	if len(found) != 1 {
		return ErrInvalidReaction
	}
	if found[0].Character != reaction {
		// Non-emoji characters alongside the emoji.
		return ErrInvalidReaction
	}
	return nil
}
