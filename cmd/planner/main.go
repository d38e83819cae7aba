package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tomorrowplanner/internal/app"
	"tomorrowplanner/internal/config"
	"tomorrowplanner/internal/invite"
	"tomorrowplanner/internal/ratelimit"
	"tomorrowplanner/internal/server"
	"tomorrowplanner/internal/util"
	"tomorrowplanner/pkg/queue"
	"tomorrowplanner/pkg/store"
)

const sessionPrunePeriod = time.Minute

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	eventStore, err := store.NewGormStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open event store: %v", err)
	}

	var sessions store.SessionStore
	var memorySessions *store.MemorySessionStore
	switch cfg.SessionBackend {
	case "redis":
		sessions = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, "planner:session", sessionTTL)
	default:
		memorySessions = store.NewMemorySessionStore()
		sessions = memorySessions
	}

	codec, err := invite.NewCodec(cfg.InviteSecret)
	if err != nil {
		log.Fatalf("failed to init invite codec: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:       eventStore,
		Sessions:    sessions,
		Codec:       codec,
		BotUsername: cfg.BotUsername,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	var outbox server.Outbox
	if cfg.OutboxStream != "" {
		redisOutbox, err := queue.NewRedisOutbox(queue.RedisOutboxConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.OutboxStream,
		})
		if err != nil {
			log.Fatalf("failed to init outbox: %v", err)
		}
		outbox = redisOutbox
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "planner:ratelimit", cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init rate limiter: %v", err)
		}
	}

	httpServer := server.New(server.Config{
		App:           appCore,
		Outbox:        outbox,
		WebhookSecret: cfg.WebhookSecret,
		Limiter:       limiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("planner server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if memorySessions != nil {
		group.Go(func() error {
			ticker := time.NewTicker(sessionPrunePeriod)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if pruned := memorySessions.PruneIdle(sessionTTL); pruned > 0 {
						slog.Debug("pruned idle sessions", "count", pruned)
					}
				}
			}
		})
	}

	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}
