package contextstore

import (
	"context"
	"strings"

	"kbchat/internal/model"
)

// DefaultWindow is the number of most recent turns included in prompt
// context.
const DefaultWindow = 5

// Store keeps a rolling window of formatted conversation turns per user,
// used to build prompt context. Entries beyond the window are discarded on
// append, so memory stays bounded no matter how long a conversation runs.
type Store interface {
	// AppendTurn records one formatted turn for the user.
	AppendTurn(ctx context.Context, userID, role, text string) error
	// Context returns the most recent turns, oldest first, joined by
	// newline. Empty string when the user has no recorded turns.
	Context(ctx context.Context, userID string) (string, error)
}

// FormatTurn renders a turn the way prompt envelopes expect it.
func FormatTurn(role, text string) string {
	label := "User"
	if role == model.RoleAssistant {
		label = "Assistant"
	}
	return label + ": " + strings.TrimSpace(text)
}
