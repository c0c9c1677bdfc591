package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/session"
)

type fakeHandle struct {
	key  string
	idle atomic.Bool
	done chan struct{}
	once sync.Once
}

func (h *fakeHandle) ContextKey() string    { return h.key }
func (h *fakeHandle) IsIdle() bool          { return h.idle.Load() }
func (h *fakeHandle) Done() <-chan struct{} { return h.done }
func (h *fakeHandle) drop()                 { h.once.Do(func() { close(h.done) }) }

// fakeProvider hands out fakeHandles and records releases.
type fakeProvider struct {
	mu         sync.Mutex
	acquired   map[string]int
	released   map[string]int
	handles    map[string]*fakeHandle
	AcquireErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		acquired: make(map[string]int),
		released: make(map[string]int),
		handles:  make(map[string]*fakeHandle),
	}
}

func (p *fakeProvider) Acquire(_ context.Context, key string) (session.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.AcquireErr != nil {
		return nil, p.AcquireErr
	}
	h := &fakeHandle{key: key, done: make(chan struct{})}
	h.idle.Store(true)
	p.acquired[key]++
	p.handles[key] = h
	return h, nil
}

func (p *fakeProvider) Release(h session.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released[h.ContextKey()]++
	return nil
}

func (p *fakeProvider) counts(key string) (acquired, released int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acquired[key], p.released[key]
}

func (p *fakeProvider) handle(key string) *fakeHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handles[key]
}

// fakePlayer blocks every Play call until the test finishes it.
type fakePlayer struct {
	mu      sync.Mutex
	started []string
	pending map[string]chan error
	skipped int
	paused  bool
	volume  int

	startedCh chan string
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		pending:   make(map[string]chan error),
		startedCh: make(chan string, 64),
	}
}

func (p *fakePlayer) Play(ctx context.Context, h session.Handle, t domain.Track) error {
	done := make(chan error, 1)
	p.mu.Lock()
	p.started = append(p.started, t.Title)
	p.pending[t.Title] = done
	p.mu.Unlock()
	p.startedCh <- t.Title

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *fakePlayer) Skip(_ context.Context, _ session.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.skipped++
	for title, ch := range p.pending {
		ch <- nil
		delete(p.pending, title)
	}
	return nil
}

func (p *fakePlayer) Pause(_ context.Context, _ session.Handle, paused bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = paused
	return nil
}

func (p *fakePlayer) SetVolume(_ context.Context, _ session.Handle, percent int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = percent
	return nil
}

// finish completes the Play call for title with err.
func (p *fakePlayer) finish(t *testing.T, title string, err error) {
	t.Helper()
	p.mu.Lock()
	ch, ok := p.pending[title]
	delete(p.pending, title)
	p.mu.Unlock()
	if !ok {
		t.Fatalf("track %q is not playing", title)
	}
	ch <- err
}

// waitStarted blocks until the next track starts and returns its title.
func (p *fakePlayer) waitStarted(t *testing.T) string {
	t.Helper()
	select {
	case title := <-p.startedCh:
		return title
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a track to start")
		return ""
	}
}

// assertNotStarted fails if any track starts within a short window.
func (p *fakePlayer) assertNotStarted(t *testing.T) {
	t.Helper()
	select {
	case title := <-p.startedCh:
		t.Fatalf("track %q started unexpectedly", title)
	case <-time.After(50 * time.Millisecond):
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

var errTransport = errors.New("transport closed")
