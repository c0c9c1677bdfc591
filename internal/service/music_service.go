package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/provider"
	"github.com/notifyhub/cogbot/internal/ratelimiter"
	"github.com/notifyhub/cogbot/internal/session"
)

// QueuePreview is how many upcoming tracks Queue returns.
const QueuePreview = 10

// MusicService resolves content and feeds it to the per-context sessions.
// Music and speech share one lane per context.
type MusicService struct {
	registry       *session.Registry
	resolver       provider.Resolver
	synth          provider.Synthesizer
	limiter        *ratelimiter.RouteLimiters
	maxTrackLength time.Duration
	logger         *zap.Logger
}

func NewMusicService(
	registry *session.Registry,
	resolver provider.Resolver,
	synth provider.Synthesizer,
	limiter *ratelimiter.RouteLimiters,
	maxTrackLength time.Duration,
	logger *zap.Logger,
) *MusicService {
	return &MusicService{
		registry:       registry,
		resolver:       resolver,
		synth:          synth,
		limiter:        limiter,
		maxTrackLength: maxTrackLength,
		logger:         logger,
	}
}

// Play resolves req.Query and enqueues the result on contextKey.
func (s *MusicService) Play(ctx context.Context, contextKey string, req domain.PlayRequest) (domain.Enqueued, error) {
	if err := req.Validate(); err != nil {
		return domain.Enqueued{}, err
	}
	if err := s.limiter.Wait(ctx, ratelimiter.RouteResolve); err != nil {
		return domain.Enqueued{}, err
	}

	t, err := s.resolver.Resolve(ctx, req.Query)
	if err != nil {
		return domain.Enqueued{}, fmt.Errorf("resolve %q: %w", req.Query, err)
	}
	if s.maxTrackLength > 0 && t.Duration > s.maxTrackLength {
		return domain.Enqueued{}, fmt.Errorf("%w: %s is %s", domain.ErrTrackTooLong, t.Title, domain.FormatDuration(t.Duration))
	}
	t.ContextKey = contextKey
	t.RequestedBy = req.RequestedBy

	return s.enqueue(ctx, t)
}

// Speak synthesizes req.Text and enqueues it on contextKey.
func (s *MusicService) Speak(ctx context.Context, contextKey string, req domain.SpeakRequest) (domain.Enqueued, error) {
	if err := req.Validate(); err != nil {
		return domain.Enqueued{}, err
	}
	if err := s.limiter.Wait(ctx, ratelimiter.RouteSpeech); err != nil {
		return domain.Enqueued{}, err
	}

	t, err := s.synth.Synthesize(ctx, req.Text, req.Voice)
	if err != nil {
		return domain.Enqueued{}, err
	}
	t.ContextKey = contextKey
	t.RequestedBy = req.RequestedBy

	return s.enqueue(ctx, t)
}

func (s *MusicService) enqueue(ctx context.Context, t domain.Track) (domain.Enqueued, error) {
	res, err := s.registry.Enqueue(ctx, t)
	if err != nil {
		return domain.Enqueued{}, err
	}
	s.logger.Info("track queued",
		zap.String("context_key", t.ContextKey),
		zap.String("title", t.Title),
		zap.String("source", string(t.Source)),
		zap.Bool("started", res.Started),
		zap.Int("position", res.Position),
	)
	return res, nil
}

func (s *MusicService) Skip(ctx context.Context, contextKey string) error {
	return s.registry.Skip(ctx, contextKey)
}

func (s *MusicService) Pause(ctx context.Context, contextKey string) error {
	return s.registry.Pause(ctx, contextKey)
}

func (s *MusicService) Resume(ctx context.Context, contextKey string) error {
	return s.registry.Resume(ctx, contextKey)
}

func (s *MusicService) SetVolume(ctx context.Context, contextKey string, percent int) error {
	return s.registry.SetVolume(ctx, contextKey, percent)
}

// Stop clears the context's queue and disconnects it.
func (s *MusicService) Stop(contextKey string) error {
	return s.registry.Stop(contextKey)
}

// Queue returns the now-playing track and the next QueuePreview tracks.
func (s *MusicService) Queue(contextKey string) domain.QueueView {
	return s.registry.Snapshot(contextKey, QueuePreview)
}
