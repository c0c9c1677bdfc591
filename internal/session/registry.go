package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/queue"
)

// Reasons passed to Hooks.OnClosed.
const (
	ReasonStopped      = "stopped"
	ReasonIdle         = "idle"
	ReasonDisconnected = "disconnected"
	ReasonShutdown     = "shutdown"
)

// Options tunes session behaviour.
type Options struct {
	// IdleTimeout is how long a session with nothing to play keeps its
	// connection before it is released.
	IdleTimeout time.Duration
	// MaxQueueSize bounds each context's queue; 0 means unbounded.
	MaxQueueSize int
}

// Registry maps context keys to live sessions. Create one with NewRegistry
// and call Shutdown to release every session.
type Registry struct {
	resources ResourceProvider
	player    Player
	opts      Options
	logger    *zap.Logger
	hooks     Hooks

	// ctx is handed to Player.Play; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// Session is one context's lane. All fields are guarded by mu.
type Session struct {
	key string

	mu      sync.Mutex
	handle  Handle
	queue   *queue.FIFO
	current *domain.Track
	paused  bool
	volume  int
	active  bool
	closed  bool
	idle    *time.Timer
	stopCh  chan struct{}
}

func NewRegistry(
	resources ResourceProvider,
	player Player,
	opts Options,
	logger *zap.Logger,
	hooks Hooks,
) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		resources: resources,
		player:    player,
		opts:      opts,
		logger:    logger,
		hooks:     hooks,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]*Session),
	}
}

// Enqueue appends t to the queue of t.ContextKey, opening a session (and
// acquiring its connection) on first use. If nothing is playing, consumption
// starts immediately.
//
// When the connection cannot be acquired the error is returned and the track
// is not queued.
func (r *Registry) Enqueue(ctx context.Context, t domain.Track) (domain.Enqueued, error) {
	for {
		s, err := r.getOrCreate(t.ContextKey)
		if err != nil {
			return domain.Enqueued{}, err
		}

		s.mu.Lock()
		if s.closed {
			// lost a race with stop/idle/disconnect; the key now maps to a
			// fresh session or nothing
			s.mu.Unlock()
			continue
		}

		res, err := r.enqueueLocked(ctx, s, t)
		s.mu.Unlock()
		return res, err
	}
}

func (r *Registry) enqueueLocked(ctx context.Context, s *Session, t domain.Track) (domain.Enqueued, error) {
	log := r.logger.With(zap.String("context_key", s.key))

	if s.handle == nil {
		h, err := r.resources.Acquire(ctx, s.key)
		if err != nil {
			if s.queue.Len() == 0 && s.current == nil {
				r.destroyLocked(s, "")
			}
			return domain.Enqueued{}, fmt.Errorf("acquire connection for %s: %w", s.key, err)
		}
		s.handle = h
		r.hooks.opened()
		log.Info("session opened")

		r.wg.Add(1)
		go r.watch(s, h)
	}

	pos, err := s.queue.Push(t)
	if err != nil {
		return domain.Enqueued{}, err
	}
	s.stopIdleTimer()

	res := domain.Enqueued{Track: t, Position: pos}
	if !s.active {
		if pos == 1 {
			res.Started, res.Position = true, 0
		}
		r.startConsumerLocked(s)
	}

	log.Debug("track enqueued",
		zap.String("title", t.Title),
		zap.Int("position", res.Position),
		zap.Bool("started", res.Started),
	)
	return res, nil
}

// Drain starts consuming the queue of key if it holds tracks and nothing is
// playing. It reports whether consumption was started. Draining a stopped or
// unknown key is a no-op.
func (r *Registry) Drain(key string) bool {
	s := r.lookup(key)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.active || s.handle == nil || s.queue.Len() == 0 {
		return false
	}
	r.startConsumerLocked(s)
	return true
}

// Stop clears the queue of key, releases its connection and destroys the
// session. A track already playing is not interrupted by the registry; it
// ends when the connection closes.
func (r *Registry) Stop(key string) error {
	s := r.lookup(key)
	if s == nil {
		return domain.ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrNoSession
	}
	return r.destroyLocked(s, ReasonStopped)
}

// IdleRelease destroys the session for key when it has nothing queued or
// playing and its connection reports idle. Sessions with queued tracks are
// never released. It reports whether the session was destroyed.
func (r *Registry) IdleRelease(key string) bool {
	s := r.lookup(key)
	if s == nil {
		return false
	}
	return r.idleRelease(s)
}

func (r *Registry) idleRelease(s *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.active || s.current != nil || s.queue.Len() > 0 {
		return false
	}
	if s.handle != nil && !s.handle.IsIdle() {
		s.armIdleTimer(r)
		return false
	}
	if err := r.destroyLocked(s, ReasonIdle); err != nil {
		r.logger.Warn("idle release failed", zap.String("context_key", s.key), zap.Error(err))
	}
	return true
}

// Skip ends the current track; the next queued track starts after it.
func (r *Registry) Skip(ctx context.Context, key string) error {
	return r.withPlaying(key, func(s *Session) error {
		return r.player.Skip(ctx, s.handle)
	})
}

// Pause pauses the current track.
func (r *Registry) Pause(ctx context.Context, key string) error {
	return r.withPlaying(key, func(s *Session) error {
		if s.paused {
			return domain.ErrNothingPlaying
		}
		if err := r.player.Pause(ctx, s.handle, true); err != nil {
			return err
		}
		s.paused = true
		return nil
	})
}

// Resume resumes a paused track.
func (r *Registry) Resume(ctx context.Context, key string) error {
	return r.withPlaying(key, func(s *Session) error {
		if !s.paused {
			return domain.ErrNotPaused
		}
		if err := r.player.Pause(ctx, s.handle, false); err != nil {
			return err
		}
		s.paused = false
		return nil
	})
}

// SetVolume changes the playback volume (0-100) of the current track.
func (r *Registry) SetVolume(ctx context.Context, key string, percent int) error {
	if err := domain.ValidateVolume(percent); err != nil {
		return err
	}
	return r.withPlaying(key, func(s *Session) error {
		if err := r.player.SetVolume(ctx, s.handle, percent); err != nil {
			return err
		}
		s.volume = percent
		return nil
	})
}

func (r *Registry) withPlaying(key string, fn func(s *Session) error) error {
	s := r.lookup(key)
	if s == nil {
		return domain.ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrNoSession
	}
	if s.current == nil {
		return domain.ErrNothingPlaying
	}
	return fn(s)
}

// Snapshot returns the now-playing track and up to limit upcoming tracks.
// Unknown keys yield an empty view.
func (r *Registry) Snapshot(key string, limit int) domain.QueueView {
	view := domain.QueueView{Upcoming: []domain.Track{}}
	s := r.lookup(key)
	if s == nil {
		return view
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return view
	}
	if s.current != nil {
		cur := *s.current
		view.NowPlaying = &cur
	}
	view.Upcoming = s.queue.Peek(limit)
	view.Total = s.queue.Len()
	view.Paused = s.paused
	view.Volume = s.volume
	return view
}

// Len returns the number of tracks waiting (not playing) for key.
func (r *Registry) Len(key string) int {
	s := r.lookup(key)
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Active returns the number of live sessions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Shutdown destroys every session, cancels in-flight playback and waits for
// consumer goroutines to return, or for ctx to end.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	var err error
	for _, s := range sessions {
		s.mu.Lock()
		if !s.closed {
			err = multierr.Append(err, r.destroyLocked(s, ReasonShutdown))
		}
		s.mu.Unlock()
	}

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		err = multierr.Append(err, ctx.Err())
	}
	return err
}

// ---- internals ----

func (r *Registry) getOrCreate(key string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrSessionClosed
	}
	s, ok := r.sessions[key]
	if !ok {
		s = &Session{
			key:    key,
			queue:  queue.New(r.opts.MaxQueueSize),
			volume: 100,
			stopCh: make(chan struct{}),
		}
		r.sessions[key] = s
	}
	return s, nil
}

func (r *Registry) lookup(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[key]
}

// destroyLocked tears s down. Callers hold s.mu. An empty reason marks a
// session whose connection was never acquired.
func (r *Registry) destroyLocked(s *Session, reason string) error {
	s.closed = true
	dropped := s.queue.Clear()
	s.stopIdleTimer()
	close(s.stopCh)

	r.mu.Lock()
	if r.sessions[s.key] == s {
		delete(r.sessions, s.key)
	}
	r.mu.Unlock()

	if s.handle == nil {
		return nil
	}

	err := r.resources.Release(s.handle)
	s.handle = nil
	r.hooks.closed(reason)
	r.logger.Info("session closed",
		zap.String("context_key", s.key),
		zap.String("reason", reason),
		zap.Int("dropped", dropped),
	)
	if err != nil {
		return fmt.Errorf("release connection for %s: %w", s.key, err)
	}
	return nil
}

func (r *Registry) startConsumerLocked(s *Session) {
	s.active = true
	s.stopIdleTimer()
	r.wg.Add(1)
	go r.consume(s)
}

// consume plays queued tracks one at a time until the queue is empty, the
// session is destroyed, or a track fails.
func (r *Registry) consume(s *Session) {
	defer r.wg.Done()
	log := r.logger.With(zap.String("context_key", s.key))

	for {
		s.mu.Lock()
		if s.closed {
			s.active = false
			s.mu.Unlock()
			return
		}
		t, ok := s.queue.Pop()
		if !ok {
			s.active = false
			s.armIdleTimer(r)
			s.mu.Unlock()
			return
		}
		s.current, s.paused = &t, false
		h := s.handle
		s.mu.Unlock()

		log.Debug("track started", zap.String("title", t.Title))
		err := r.player.Play(r.ctx, h, t)
		r.hooks.finished(t.Source, err)

		s.mu.Lock()
		s.current, s.paused = nil, false
		if err != nil {
			s.active = false
			if !s.closed {
				log.Warn("playback failed; queue halted",
					zap.String("title", t.Title),
					zap.Int("queued", s.queue.Len()),
					zap.Error(err),
				)
				s.armIdleTimer(r)
			}
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

// watch destroys s if its connection drops while the session is live.
func (r *Registry) watch(s *Session, h Handle) {
	defer r.wg.Done()

	select {
	case <-h.Done():
	case <-s.stopCh:
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.handle != h {
		return
	}
	r.logger.Warn("voice connection dropped", zap.String("context_key", s.key))
	if err := r.destroyLocked(s, ReasonDisconnected); err != nil {
		r.logger.Debug("release after disconnect", zap.String("context_key", s.key), zap.Error(err))
	}
}

func (s *Session) armIdleTimer(r *Registry) {
	s.stopIdleTimer()
	if r.opts.IdleTimeout <= 0 {
		return
	}
	s.idle = time.AfterFunc(r.opts.IdleTimeout, func() { r.idleRelease(s) })
}

func (s *Session) stopIdleTimer() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
}
