package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/provider"
	"github.com/notifyhub/cogbot/internal/ratelimiter"
)

// chatAttempts bounds calls to the completer per request.
const chatAttempts = 3

// ChatService answers free-form prompts through a ChatCompleter.
type ChatService struct {
	completer  provider.ChatCompleter
	limiter    *ratelimiter.RouteLimiters
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewChatService(
	completer provider.ChatCompleter,
	limiter *ratelimiter.RouteLimiters,
	retryDelay time.Duration,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{completer: completer, limiter: limiter, retryDelay: retryDelay, logger: logger}
}

// Chat returns the completion for req split into message-sized chunks.
// Transient upstream errors are retried with a linearly growing delay.
func (s *ChatService) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error) {
	if err := req.Normalize(); err != nil {
		return domain.ChatReply{}, err
	}

	var (
		text string
		err  error
	)
	for attempt := 1; attempt <= chatAttempts; attempt++ {
		if err = s.limiter.Wait(ctx, ratelimiter.RouteChat); err != nil {
			return domain.ChatReply{}, err
		}
		text, err = s.completer.Complete(ctx, req)
		if err == nil || !errors.Is(err, provider.ErrTransient) || attempt == chatAttempts {
			break
		}

		wait := s.retryDelay * time.Duration(attempt)
		s.logger.Warn("chat upstream busy, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return domain.ChatReply{}, ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return domain.ChatReply{}, err
	}

	return domain.ChatReply{Chunks: domain.Chunk(text, domain.MaxChunkRunes)}, nil
}
