package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notifyhub/cogbot/internal/api"
	"github.com/notifyhub/cogbot/internal/config"
	"github.com/notifyhub/cogbot/internal/metrics"
	"github.com/notifyhub/cogbot/internal/provider"
	"github.com/notifyhub/cogbot/internal/ratelimiter"
	"github.com/notifyhub/cogbot/internal/service"
	"github.com/notifyhub/cogbot/internal/session"
	"github.com/notifyhub/cogbot/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the reminder loop and the voice sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	// ---- storage ----
	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	logger.Info("reminder store ready", zap.String("driver", cfg.StoreDriver))

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	limiter := ratelimiter.New(map[ratelimiter.Route]int{
		ratelimiter.RouteNotify:  cfg.NotifyRate,
		ratelimiter.RouteResolve: cfg.ResolveRate,
		ratelimiter.RouteChat:    cfg.ChatRate,
		ratelimiter.RouteSpeech:  cfg.SpeechRate,
	})

	node := provider.NewAudioNode(cfg.AudioNodeURL, cfg.AudioNodeToken, logger.Named("audionode"))
	registry := session.NewRegistry(node, node, session.Options{
		IdleTimeout:  cfg.IdleTimeout,
		MaxQueueSize: cfg.MaxQueueSize,
	}, logger.Named("session"), m.SessionHooks())

	services := api.Services{
		Reminders: service.NewReminderService(repo, logger),
		Music: service.NewMusicService(
			registry,
			provider.NewYTDLPResolver(cfg.YTDLPPath, cfg.ResolveTimeout),
			provider.NewHTTPSynthesizer(cfg.TTSURL, cfg.TTSVoice, cfg.ResolveTimeout),
			limiter,
			cfg.MaxTrackLength,
			logger,
		),
		Registry: registry,
		Repo:     repo,
	}
	if cfg.GeminiAPIKey != "" {
		completer, err := provider.NewGeminiChat(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		services.Chat = service.NewChatService(completer, limiter, cfg.ChatRetryDelay, logger)
	} else {
		logger.Info("GEMINI_API_KEY not set; chat endpoint disabled")
	}

	// ---- background loops ----
	// Own context so loops stop only after the HTTP server has drained.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	runners := []worker.Runner{
		worker.NewReminderWorker(
			repo,
			provider.NewWebhookNotifier(cfg.NotifierURL, cfg.NotifierTimeout),
			limiter,
			cfg.ReminderInterval,
			cfg.NotifyConcurrency,
			logger.Named("reminders"),
			m.ReminderHooks(),
		),
	}
	if cfg.PresenceURL != "" {
		runners = append(runners, worker.NewPresenceWorker(
			provider.NewWebhookPresence(cfg.PresenceURL, cfg.NotifierTimeout),
			cfg.PresenceStatuses,
			cfg.PresenceInterval,
			logger.Named("presence"),
		))
	}
	pool := worker.NewPool(runners...)
	pool.Start(workerCtx)

	// ---- HTTP server ----
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      api.NewRouter(services, reg, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		return shutdown(srv, cancelWorkers, pool, registry, cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// shutdown stops accepting requests, stops the background loops, then
// releases every voice session.
func shutdown(srv *http.Server, cancelWorkers context.CancelFunc, pool *worker.Pool, registry *session.Registry, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(ctx)

	cancelWorkers()
	pool.Wait()

	return multierr.Append(err, registry.Shutdown(ctx))
}
