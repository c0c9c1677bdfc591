package session

import (
	"context"

	"github.com/notifyhub/cogbot/internal/domain"
)

// Handle is an acquired voice connection owned by exactly one session.
type Handle interface {
	// ContextKey is the key the handle was acquired for.
	ContextKey() string
	// IsIdle reports whether the connection has carried no audio recently.
	IsIdle() bool
	// Done is closed when the underlying connection drops.
	Done() <-chan struct{}
}

// ResourceProvider opens and closes voice connections.
type ResourceProvider interface {
	Acquire(ctx context.Context, contextKey string) (Handle, error)
	Release(h Handle) error
}

// Player plays tracks on an acquired handle.
type Player interface {
	// Play blocks until t has finished, was skipped (nil error), or failed.
	Play(ctx context.Context, h Handle, t domain.Track) error
	// Skip ends the current track early; the pending Play returns nil.
	Skip(ctx context.Context, h Handle) error
	Pause(ctx context.Context, h Handle, paused bool) error
	SetVolume(ctx context.Context, h Handle, percent int) error
}

// Hooks carries optional callbacks, typically metric observations injected
// by main. Nil fields are no-ops.
type Hooks struct {
	OnOpened   func()
	OnClosed   func(reason string)
	OnFinished func(source domain.Source, err error)
}

func (h Hooks) opened() {
	if h.OnOpened != nil {
		h.OnOpened()
	}
}

func (h Hooks) closed(reason string) {
	if h.OnClosed != nil {
		h.OnClosed(reason)
	}
}

func (h Hooks) finished(source domain.Source, err error) {
	if h.OnFinished != nil {
		h.OnFinished(source, err)
	}
}
