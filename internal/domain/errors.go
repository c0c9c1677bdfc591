package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOwner     = errors.New("owner_id must not be empty")
	ErrInvalidDuration  = errors.New("invalid duration: use combinations like 30s, 1h30m, 30m, 2d")
	ErrMessageTooLong   = errors.New("message must be 500 characters or less")
	ErrEmptyMessage     = errors.New("message must not be empty")
	ErrInvalidQuery     = errors.New("query must not be empty")
	ErrInvalidVolume    = errors.New("volume must be between 0 and 100")
	ErrQueueFull        = errors.New("queue is at capacity, try again later")
	ErrTrackTooLong     = errors.New("track exceeds the maximum allowed length")
	ErrNoSession        = errors.New("no active session for this context")
	ErrNothingPlaying   = errors.New("nothing is currently playing")
	ErrNotPaused        = errors.New("playback is not paused")
	ErrSessionClosed    = errors.New("session is closed")
	ErrEmptyCompletion  = errors.New("no generated text in completion response")
	ErrInvalidChatParam = errors.New("invalid chat parameters")
)
