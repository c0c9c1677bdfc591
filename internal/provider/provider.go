package provider

import (
	"context"
	"errors"

	"github.com/notifyhub/cogbot/internal/domain"
)

// ErrTransient marks upstream failures worth retrying (overload, model
// warm-up, rate limiting).
var ErrTransient = errors.New("transient upstream error")

// Notifier delivers a direct message to a user. Mocking this interface in
// tests gives full control over delivery without making real HTTP calls.
type Notifier interface {
	Notify(ctx context.Context, ownerID, text string) error
}

// Resolver turns a free-text query or URL into a playable track.
type Resolver interface {
	Resolve(ctx context.Context, query string) (domain.Track, error)
}

// Synthesizer turns text into a playable speech track.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (domain.Track, error)
}

// ChatCompleter generates a text completion for a prompt.
type ChatCompleter interface {
	Complete(ctx context.Context, req domain.ChatRequest) (string, error)
}

// PresenceSetter updates the bot's visible status line.
type PresenceSetter interface {
	SetPresence(ctx context.Context, status string) error
}
