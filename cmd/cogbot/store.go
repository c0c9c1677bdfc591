package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/config"
	"github.com/notifyhub/cogbot/internal/db"
	"github.com/notifyhub/cogbot/internal/repository"
)

// openStore returns the reminder store selected by STORE_DRIVER and a
// function that releases it.
func openStore(ctx context.Context, cfg *config.Config) (repository.ReminderRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("using in-memory reminder store; reminders are lost on restart")
		return repository.NewMemoryReminderRepository(), func() {}, nil

	case config.StorePostgres:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations applied")
		return repository.NewPgReminderRepository(pool), pool.Close, nil

	case config.StoreBolt:
		openCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		store, err := repository.OpenBolt(openCtx, cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close bolt store", zap.Error(err))
			}
		}, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return repository.NewRedisReminderRepository(rdb, cfg.RedisPrefix), func() { _ = rdb.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
