package domain_test

import (
	"strings"
	"testing"

	"github.com/notifyhub/cogbot/internal/domain"
)

func TestChatRequest_Normalize(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		r := domain.ChatRequest{Message: "hi"}
		if err := r.Normalize(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.MaxLength != 200 || r.Temperature != 0.7 || r.TopP != 0.9 {
			t.Fatalf("defaults not applied: %+v", r)
		}
	})

	t.Run("empty message", func(t *testing.T) {
		r := domain.ChatRequest{}
		if err := r.Normalize(); err != domain.ErrEmptyMessage {
			t.Fatalf("expected ErrEmptyMessage, got %v", err)
		}
	})

	t.Run("top_p out of range", func(t *testing.T) {
		r := domain.ChatRequest{Message: "hi", TopP: 1.5}
		if err := r.Normalize(); err != domain.ErrInvalidChatParam {
			t.Fatalf("expected ErrInvalidChatParam, got %v", err)
		}
	})
}

func TestChunk(t *testing.T) {
	if got := domain.Chunk("short", 2000); len(got) != 1 || got[0] != "short" {
		t.Fatalf("expected single chunk, got %v", got)
	}

	long := strings.Repeat("a", 4500)
	got := domain.Chunk(long, 2000)
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	if len(got[0]) != 2000 || len(got[2]) != 500 {
		t.Fatalf("unexpected chunk sizes %d/%d", len(got[0]), len(got[2]))
	}
}
