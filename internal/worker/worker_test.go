package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/ratelimiter"
	"github.com/notifyhub/cogbot/internal/repository"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sent struct {
	Owner string
	Text  string
}

// fakeNotifier records deliveries and fails for owners listed in failFor.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sent
	failFor map[string]bool
}

func (n *fakeNotifier) Notify(_ context.Context, ownerID, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[ownerID] {
		return errors.New("cannot send messages to this user")
	}
	n.sent = append(n.sent, sent{Owner: ownerID, Text: text})
	return nil
}

func (n *fakeNotifier) deliveries() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sent(nil), n.sent...)
}

var clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newReminderWorker(repo repository.ReminderRepository, n *fakeNotifier, hooks ReminderHooks) *ReminderWorker {
	limiter := ratelimiter.New(map[ratelimiter.Route]int{ratelimiter.RouteNotify: 0})
	w := NewReminderWorker(repo, n, limiter, time.Hour, 2, zap.NewNop(), hooks)
	w.now = func() time.Time { return clock }
	return w
}

func put(t *testing.T, repo repository.ReminderRepository, owner, msg string, fireAt time.Time) string {
	t.Helper()
	id, err := repo.Put(context.Background(), &domain.Reminder{
		OwnerID:   owner,
		Message:   msg,
		FireAt:    fireAt,
		CreatedAt: clock.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	return id
}

func TestReminderWorker_DispatchesDueOnce(t *testing.T) {
	repo := repository.NewMemoryReminderRepository()
	n := &fakeNotifier{}
	w := newReminderWorker(repo, n, ReminderHooks{})

	put(t, repo, "U1", "P", clock.Add(-time.Second))

	if got := w.Tick(context.Background()); got != 1 {
		t.Fatalf("expected 1 claimed, got %d", got)
	}
	if diff := cmp.Diff([]sent{{Owner: "U1", Text: "⏰ Reminder: P"}}, n.deliveries()); diff != "" {
		t.Fatalf("unexpected deliveries (-want +got):\n%s", diff)
	}
	pending, _ := repo.ListPending(context.Background(), "")
	if len(pending) != 0 {
		t.Fatalf("expected store to be empty, got %d", len(pending))
	}

	// a second tick has nothing left to deliver
	w.Tick(context.Background())
	if len(n.deliveries()) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(n.deliveries()))
	}
}

func TestReminderWorker_FutureRemindersUntouched(t *testing.T) {
	repo := repository.NewMemoryReminderRepository()
	n := &fakeNotifier{}
	w := newReminderWorker(repo, n, ReminderHooks{})

	put(t, repo, "U1", "later", clock.Add(time.Minute))
	put(t, repo, "U2", "now", clock)

	for i := 0; i < 3; i++ {
		w.Tick(context.Background())
	}
	if diff := cmp.Diff([]sent{{Owner: "U2", Text: "⏰ Reminder: now"}}, n.deliveries()); diff != "" {
		t.Fatalf("unexpected deliveries (-want +got):\n%s", diff)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected the future reminder to remain, got %d", repo.Len())
	}

	clock := clock.Add(time.Minute)
	w.now = func() time.Time { return clock }
	w.Tick(context.Background())
	if len(n.deliveries()) != 2 || repo.Len() != 0 {
		t.Fatalf("expected the reminder to fire once due, deliveries=%d left=%d", len(n.deliveries()), repo.Len())
	}
}

func TestReminderWorker_DeliveryFailureStillRemoves(t *testing.T) {
	repo := repository.NewMemoryReminderRepository()
	n := &fakeNotifier{failFor: map[string]bool{"blocked": true}}

	var dispatched, failed atomic.Int32
	w := newReminderWorker(repo, n, ReminderHooks{
		OnDispatched: func(err error) {
			dispatched.Add(1)
			if err != nil {
				failed.Add(1)
			}
		},
	})

	put(t, repo, "blocked", "a", clock.Add(-time.Minute))
	put(t, repo, "U1", "b", clock.Add(-time.Minute))

	if got := w.Tick(context.Background()); got != 2 {
		t.Fatalf("expected both reminders claimed, got %d", got)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected undeliverable reminder to be dropped, %d left", repo.Len())
	}
	if dispatched.Load() != 2 || failed.Load() != 1 {
		t.Fatalf("expected 2 dispatched / 1 failed, got %d / %d", dispatched.Load(), failed.Load())
	}
}

func TestReminderWorker_StoreErrors(t *testing.T) {
	t.Run("scan failure", func(t *testing.T) {
		repo := repository.NewMemoryReminderRepository()
		n := &fakeNotifier{}
		var tickErr error
		w := newReminderWorker(repo, n, ReminderHooks{
			OnTick: func(_ time.Duration, _ int, err error) { tickErr = err },
		})
		put(t, repo, "U1", "a", clock.Add(-time.Minute))
		repo.ListErr = errors.New("disk unavailable")

		if got := w.Tick(context.Background()); got != 0 {
			t.Fatalf("expected nothing claimed, got %d", got)
		}
		if tickErr == nil {
			t.Fatal("expected tick hook to receive the error")
		}

		// the next tick after recovery delivers normally
		repo.ListErr = nil
		w.Tick(context.Background())
		if len(n.deliveries()) != 1 {
			t.Fatalf("expected delivery after recovery, got %d", len(n.deliveries()))
		}
	})

	t.Run("claim failure notifies nobody", func(t *testing.T) {
		repo := repository.NewMemoryReminderRepository()
		n := &fakeNotifier{}
		w := newReminderWorker(repo, n, ReminderHooks{})
		put(t, repo, "U1", "a", clock.Add(-time.Minute))
		repo.RemoveErr = errors.New("write conflict")

		w.Tick(context.Background())
		if len(n.deliveries()) != 0 {
			t.Fatalf("expected no delivery without a successful claim, got %d", len(n.deliveries()))
		}
		if repo.Len() != 1 {
			t.Fatalf("expected reminder to stay for the next tick, got %d", repo.Len())
		}
	})
}

func TestReminderWorker_ConcurrentTicksDeliverOnce(t *testing.T) {
	repo := repository.NewMemoryReminderRepository()
	n := &fakeNotifier{}
	a := newReminderWorker(repo, n, ReminderHooks{})
	b := newReminderWorker(repo, n, ReminderHooks{})

	const total = 50
	for i := 0; i < total; i++ {
		put(t, repo, "U1", "x", clock.Add(-time.Duration(i)*time.Second))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.Tick(context.Background()) }()
	go func() { defer wg.Done(); b.Tick(context.Background()) }()
	wg.Wait()

	if got := len(n.deliveries()); got != total {
		t.Fatalf("expected %d deliveries, got %d", total, got)
	}
}

func TestReminderWorker_RunStopsOnCancel(t *testing.T) {
	repo := repository.NewMemoryReminderRepository()
	n := &fakeNotifier{}
	w := newReminderWorker(repo, n, ReminderHooks{})
	w.interval = 5 * time.Millisecond
	put(t, repo, "U1", "a", clock.Add(-time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(w)
	p.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for len(n.deliveries()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	p.Wait()

	if len(n.deliveries()) != 1 {
		t.Fatalf("expected one delivery, got %d", len(n.deliveries()))
	}
}

type fakePresence struct {
	mu       sync.Mutex
	statuses []string
}

func (p *fakePresence) SetPresence(_ context.Context, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, status)
	return nil
}

func (p *fakePresence) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.statuses...)
}

func TestPresenceWorker_Cycles(t *testing.T) {
	setter := &fakePresence{}
	w := NewPresenceWorker(setter, []string{"a", "b"}, time.Hour, zap.NewNop())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		w.advance(ctx)
	}
	if diff := cmp.Diff([]string{"a", "b", "a", "b", "a"}, setter.seen()); diff != "" {
		t.Fatalf("unexpected rotation (-want +got):\n%s", diff)
	}
}

func TestPresenceWorker_NoStatuses(t *testing.T) {
	w := NewPresenceWorker(&fakePresence{}, nil, time.Millisecond, zap.NewNop())

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Run to return immediately without statuses")
	}
}
