package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxChunkRunes is the largest message the chat platform accepts.
const MaxChunkRunes = 2000

// ChatRequest is the inbound payload for a chat completion.
// Zero values are replaced by defaults in Normalize.
type ChatRequest struct {
	Message     string  `json:"message"`
	MaxLength   int     `json:"max_length"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
}

// Normalize fills defaults and validates ranges.
func (r *ChatRequest) Normalize() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if r.MaxLength == 0 {
		r.MaxLength = 200
	}
	if r.Temperature == 0 {
		r.Temperature = 0.7
	}
	if r.TopP == 0 {
		r.TopP = 0.9
	}
	if r.MaxLength < 1 || r.MaxLength > 4096 ||
		r.Temperature < 0 || r.Temperature > 2 ||
		r.TopP <= 0 || r.TopP > 1 {
		return ErrInvalidChatParam
	}
	return nil
}

// ChatReply is the completion split into platform-sized chunks.
type ChatReply struct {
	Chunks []string `json:"chunks"`
}

// Chunk splits s into pieces of at most n runes.
func Chunk(s string, n int) []string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return []string{s}
	}

	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		end := min(n, len(runes))
		out = append(out, string(runes[:end]))
		runes = runes[end:]
	}
	return out
}
