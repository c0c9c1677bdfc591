package domain

import (
	"strings"
	"time"
)

// Source distinguishes what produced a track.
type Source string

const (
	SourceMusic  Source = "music"
	SourceSpeech Source = "speech"
)

// Track is a queue item: a resolved, playable piece of audio bound to one
// execution context (a guild's voice session).
type Track struct {
	ContextKey  string        `json:"context_key"`
	Title       string        `json:"title"`
	StreamURL   string        `json:"stream_url"`
	PageURL     string        `json:"page_url,omitempty"`
	Duration    time.Duration `json:"duration"`
	Source      Source        `json:"source"`
	RequestedBy string        `json:"requested_by,omitempty"`
}

// PlayRequest is the inbound payload for queueing music on a context.
type PlayRequest struct {
	Query       string `json:"query"`
	RequestedBy string `json:"requested_by"`
}

func (r *PlayRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrInvalidQuery
	}
	return nil
}

// SpeakRequest is the inbound payload for text-to-speech on a context.
type SpeakRequest struct {
	Text        string `json:"text"`
	Voice       string `json:"voice"`
	RequestedBy string `json:"requested_by"`
}

func (r *SpeakRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Enqueued describes where a track landed after a play request.
type Enqueued struct {
	Track    Track `json:"track"`
	Position int   `json:"position"`
	Started  bool  `json:"started"`
}

// QueueView is a snapshot of a context's playback state.
type QueueView struct {
	NowPlaying *Track  `json:"now_playing,omitempty"`
	Upcoming   []Track `json:"upcoming"`
	Total      int     `json:"total"`
	Paused     bool    `json:"paused"`
	Volume     int     `json:"volume"`
}

// ValidateVolume checks a volume percentage.
func ValidateVolume(v int) error {
	if v < 0 || v > 100 {
		return ErrInvalidVolume
	}
	return nil
}
