package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/provider"
	"github.com/notifyhub/cogbot/internal/ratelimiter"
	"github.com/notifyhub/cogbot/internal/repository"
	"github.com/notifyhub/cogbot/internal/service"
	"github.com/notifyhub/cogbot/internal/session"
)

func unlimited() *ratelimiter.RouteLimiters {
	return ratelimiter.New(nil)
}

// ---- reminders ----

func TestReminderService_Create(t *testing.T) {
	repo := repository.NewMemoryReminderRepository()
	svc := service.NewReminderService(repo, zap.NewNop())

	before := time.Now().UTC()
	r, err := svc.Create(context.Background(), domain.CreateReminderRequest{
		OwnerID: "U1",
		In:      "1h30m",
		Message: "  stretch  ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected a non-empty ID")
	}
	if r.Message != "stretch" {
		t.Fatalf("expected trimmed message, got %q", r.Message)
	}
	if got := r.FireAt.Sub(r.CreatedAt); got != 90*time.Minute {
		t.Fatalf("expected fire_at 90m after creation, got %s", got)
	}
	if r.CreatedAt.Before(before) {
		t.Fatalf("created_at %s precedes the call", r.CreatedAt)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected reminder to be stored, got %d", repo.Len())
	}
}

func TestReminderService_Create_Invalid(t *testing.T) {
	svc := service.NewReminderService(repository.NewMemoryReminderRepository(), zap.NewNop())

	cases := []struct {
		name string
		req  domain.CreateReminderRequest
		want error
	}{
		{"no owner", domain.CreateReminderRequest{In: "1m", Message: "x"}, domain.ErrInvalidOwner},
		{"empty message", domain.CreateReminderRequest{OwnerID: "U1", In: "1m"}, domain.ErrEmptyMessage},
		{"long message", domain.CreateReminderRequest{OwnerID: "U1", In: "1m", Message: strings.Repeat("a", 501)}, domain.ErrMessageTooLong},
		{"bad duration", domain.CreateReminderRequest{OwnerID: "U1", In: "soon", Message: "x"}, domain.ErrInvalidDuration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestReminderService_Create_StoreErrorSurfaces(t *testing.T) {
	repo := repository.NewMemoryReminderRepository()
	repo.PutErr = errors.New("disk full")
	svc := service.NewReminderService(repo, zap.NewNop())

	_, err := svc.Create(context.Background(), domain.CreateReminderRequest{OwnerID: "U1", In: "1m", Message: "x"})
	if !errors.Is(err, repo.PutErr) {
		t.Fatalf("expected store error to reach the caller, got %v", err)
	}
}

func TestReminderService_ListAndCancel(t *testing.T) {
	repo := repository.NewMemoryReminderRepository()
	svc := service.NewReminderService(repo, zap.NewNop())
	ctx := context.Background()

	a, _ := svc.Create(ctx, domain.CreateReminderRequest{OwnerID: "U1", In: "2h", Message: "later"})
	b, _ := svc.Create(ctx, domain.CreateReminderRequest{OwnerID: "U1", In: "10m", Message: "sooner"})
	other, _ := svc.Create(ctx, domain.CreateReminderRequest{OwnerID: "U2", In: "5m", Message: "not mine"})

	views, err := svc.List(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, v := range views {
		ids = append(ids, v.ID)
		if v.TimeLeft == "" {
			t.Fatalf("expected time_left for %s", v.ID)
		}
	}
	if diff := cmp.Diff([]string{b.ID, a.ID}, ids); diff != "" {
		t.Fatalf("expected soonest first (-want +got):\n%s", diff)
	}

	if err := svc.Cancel(ctx, "U1", other.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another owner's reminder, got %v", err)
	}
	if err := svc.Cancel(ctx, "U1", b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := svc.Cancel(ctx, "U1", b.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected second cancel to report ErrNotFound, got %v", err)
	}
	if repo.Len() != 2 {
		t.Fatalf("expected 2 reminders left, got %d", repo.Len())
	}
}

func TestReminderService_List_RequiresOwner(t *testing.T) {
	svc := service.NewReminderService(repository.NewMemoryReminderRepository(), zap.NewNop())
	if _, err := svc.List(context.Background(), " "); !errors.Is(err, domain.ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
}

// ---- music ----

type stubHandle struct {
	key  string
	done chan struct{}
}

func (h *stubHandle) ContextKey() string    { return h.key }
func (h *stubHandle) IsIdle() bool          { return true }
func (h *stubHandle) Done() <-chan struct{} { return h.done }

type stubVoice struct {
	mu      sync.Mutex
	played  []domain.Track
	started chan struct{}
}

func (v *stubVoice) Acquire(_ context.Context, key string) (session.Handle, error) {
	return &stubHandle{key: key, done: make(chan struct{})}, nil
}

func (v *stubVoice) Release(session.Handle) error { return nil }

// Play holds every track until the registry shuts down.
func (v *stubVoice) Play(ctx context.Context, _ session.Handle, t domain.Track) error {
	v.mu.Lock()
	v.played = append(v.played, t)
	v.mu.Unlock()
	v.started <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func (v *stubVoice) Skip(context.Context, session.Handle) error           { return nil }
func (v *stubVoice) Pause(context.Context, session.Handle, bool) error    { return nil }
func (v *stubVoice) SetVolume(context.Context, session.Handle, int) error { return nil }

type stubResolver struct {
	track domain.Track
	err   error
}

func (r stubResolver) Resolve(_ context.Context, query string) (domain.Track, error) {
	if r.err != nil {
		return domain.Track{}, r.err
	}
	t := r.track
	if t.Title == "" {
		t.Title = query
	}
	return t, nil
}

type stubSynth struct{}

func (stubSynth) Synthesize(_ context.Context, text, voice string) (domain.Track, error) {
	return domain.Track{Title: "TTS: " + text, StreamURL: "http://tts/" + voice, Source: domain.SourceSpeech}, nil
}

func newMusic(t *testing.T, resolver provider.Resolver) (*service.MusicService, *stubVoice) {
	t.Helper()
	voice := &stubVoice{started: make(chan struct{}, 16)}
	reg := session.NewRegistry(voice, voice, session.Options{IdleTimeout: time.Hour, MaxQueueSize: 5}, zap.NewNop(), session.Hooks{})
	t.Cleanup(func() { _ = reg.Shutdown(context.Background()) })
	svc := service.NewMusicService(reg, resolver, stubSynth{}, unlimited(), time.Hour, zap.NewNop())
	return svc, voice
}

func TestMusicService_PlayAndSpeakShareOneLane(t *testing.T) {
	svc, voice := newMusic(t, stubResolver{track: domain.Track{StreamURL: "http://x", Duration: 3 * time.Minute, Source: domain.SourceMusic}})
	ctx := context.Background()

	first, err := svc.Play(ctx, "g1", domain.PlayRequest{Query: "lofi", RequestedBy: "U1"})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !first.Started || first.Track.ContextKey != "g1" || first.Track.RequestedBy != "U1" {
		t.Fatalf("unexpected first result %+v", first)
	}
	<-voice.started

	second, err := svc.Speak(ctx, "g1", domain.SpeakRequest{Text: "hello", Voice: "v1"})
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	if second.Started || second.Position != 1 {
		t.Fatalf("expected speech queued behind the song, got %+v", second)
	}

	view := svc.Queue("g1")
	if view.NowPlaying == nil || view.NowPlaying.Title != "lofi" {
		t.Fatalf("expected lofi now playing, got %+v", view.NowPlaying)
	}
	if len(view.Upcoming) != 1 || view.Upcoming[0].Source != domain.SourceSpeech {
		t.Fatalf("expected speech upcoming, got %+v", view.Upcoming)
	}
}

func TestMusicService_Play_Rejections(t *testing.T) {
	t.Run("empty query", func(t *testing.T) {
		svc, _ := newMusic(t, stubResolver{})
		if _, err := svc.Play(context.Background(), "g1", domain.PlayRequest{}); !errors.Is(err, domain.ErrInvalidQuery) {
			t.Fatalf("expected ErrInvalidQuery, got %v", err)
		}
	})

	t.Run("too long", func(t *testing.T) {
		svc, _ := newMusic(t, stubResolver{track: domain.Track{Duration: 2 * time.Hour}})
		if _, err := svc.Play(context.Background(), "g1", domain.PlayRequest{Query: "mix"}); !errors.Is(err, domain.ErrTrackTooLong) {
			t.Fatalf("expected ErrTrackTooLong, got %v", err)
		}
		if v := svc.Queue("g1"); v.Total != 0 || v.NowPlaying != nil {
			t.Fatalf("expected nothing queued, got %+v", v)
		}
	})

	t.Run("resolve failure", func(t *testing.T) {
		boom := errors.New("video unavailable")
		svc, _ := newMusic(t, stubResolver{err: boom})
		if _, err := svc.Play(context.Background(), "g1", domain.PlayRequest{Query: "x"}); !errors.Is(err, boom) {
			t.Fatalf("expected resolver error, got %v", err)
		}
	})
}

func TestMusicService_ControlsWithoutSession(t *testing.T) {
	svc, _ := newMusic(t, stubResolver{})
	ctx := context.Background()

	for name, fn := range map[string]func() error{
		"skip":   func() error { return svc.Skip(ctx, "g1") },
		"pause":  func() error { return svc.Pause(ctx, "g1") },
		"resume": func() error { return svc.Resume(ctx, "g1") },
		"volume": func() error { return svc.SetVolume(ctx, "g1", 50) },
		"stop":   func() error { return svc.Stop("g1") },
	} {
		if err := fn(); !errors.Is(err, domain.ErrNoSession) {
			t.Errorf("%s: expected ErrNoSession, got %v", name, err)
		}
	}
}

// ---- chat ----

type scriptedCompleter struct {
	mu      sync.Mutex
	replies []error
	text    string
	calls   int
}

func (c *scriptedCompleter) Complete(context.Context, domain.ChatRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if len(c.replies) > 0 {
		err := c.replies[0]
		c.replies = c.replies[1:]
		if err != nil {
			return "", err
		}
	}
	return c.text, nil
}

func TestChatService_RetriesTransientErrors(t *testing.T) {
	busy := errors.Join(provider.ErrTransient, errors.New("model loading"))
	c := &scriptedCompleter{replies: []error{busy, busy}, text: strings.Repeat("x", 4500)}
	svc := service.NewChatService(c, unlimited(), time.Millisecond, zap.NewNop())

	reply, err := svc.Chat(context.Background(), domain.ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if c.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", c.calls)
	}
	if len(reply.Chunks) != 3 || len(reply.Chunks[0]) != domain.MaxChunkRunes || len(reply.Chunks[2]) != 500 {
		t.Fatalf("unexpected chunking %d chunks", len(reply.Chunks))
	}
}

func TestChatService_GivesUp(t *testing.T) {
	busy := errors.Join(provider.ErrTransient, errors.New("overloaded"))
	c := &scriptedCompleter{replies: []error{busy, busy, busy, nil}, text: "late"}
	svc := service.NewChatService(c, unlimited(), time.Millisecond, zap.NewNop())

	if _, err := svc.Chat(context.Background(), domain.ChatRequest{Message: "hi"}); !errors.Is(err, provider.ErrTransient) {
		t.Fatalf("expected transient error after retries, got %v", err)
	}
	if c.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", c.calls)
	}
}

func TestChatService_PermanentErrorNotRetried(t *testing.T) {
	c := &scriptedCompleter{replies: []error{domain.ErrEmptyCompletion}}
	svc := service.NewChatService(c, unlimited(), time.Millisecond, zap.NewNop())

	if _, err := svc.Chat(context.Background(), domain.ChatRequest{Message: "hi"}); !errors.Is(err, domain.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
	if c.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", c.calls)
	}
}

func TestChatService_InvalidParams(t *testing.T) {
	svc := service.NewChatService(&scriptedCompleter{}, unlimited(), time.Millisecond, zap.NewNop())
	_, err := svc.Chat(context.Background(), domain.ChatRequest{Message: "hi", TopP: 3})
	if !errors.Is(err, domain.ErrInvalidChatParam) {
		t.Fatalf("expected ErrInvalidChatParam, got %v", err)
	}
}
