// cmd/gatekeeper/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appaws "applicant-gate/internal/common/aws"
	"applicant-gate/internal/common/config"
	"applicant-gate/internal/common/database"
	"applicant-gate/internal/common/logger"
	"applicant-gate/internal/common/observability"
	"applicant-gate/internal/common/telegram"
	"applicant-gate/internal/dispatch"
	"applicant-gate/internal/store"

	adminpanel "applicant-gate/internal/workers/admin/admin-panel"
	sessioncoordinator "applicant-gate/internal/workers/intake/session-coordinator"
	moderationworkflow "applicant-gate/internal/workers/moderation/moderation-workflow"
	telegramrouter "applicant-gate/internal/workers/transport/telegram-router"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("info", "console")
		boot.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting gatekeeper...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("storeDriver", cfg.Database.Driver),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	var (
		st store.Store
		pg *database.PostgresClient
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		if err := pg.Migrate(ctx); err != nil {
			zapLog.Fatal("schema migration failed", zap.Error(err))
		}
		st = store.NewPostgres(pg.DB, config.GetDuration(cfg.Database.Postgres.QueryTimeout), log)
		zapLog.Info("PostgreSQL connected successfully")
	default:
		st = store.NewMemory()
		zapLog.Warn("using in-memory store, data is lost on restart")
	}

	// --- Redis (claims and stats cache) ---
	var rdb *redis.Client
	var rc *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rc, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rc.Ping(ctx)
	}, 5, time.Second, zapLog, "Redis connection")
	switch {
	case err == nil:
		defer rc.Close()
		rdb = rc.GetClient()
		zapLog.Info("Redis connected successfully")
	case cfg.Database.Driver == config.DriverPostgres:
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	default:
		if rc != nil {
			rc.Close()
		}
		zapLog.Warn("redis unavailable, using in-process claims without stats cache", zap.Error(err))
	}

	// --- Optional AWS side channels ---
	var mailer moderationworkflow.Mailer
	var events moderationworkflow.EventPublisher
	if cfg.Notifications.Email.Enabled || cfg.Notifications.Events.Enabled {
		awsCfg, err := appaws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config failed", zap.Error(err))
		}
		if cfg.Notifications.Email.Enabled {
			mailer = appaws.NewSESMailer(awsCfg, cfg.Notifications.Email.FromEmail, cfg.Notifications.Email.ToEmail)
			zapLog.Info("SES review mail enabled", zap.String("to", cfg.Notifications.Email.ToEmail))
		}
		if cfg.Notifications.Events.Enabled {
			events = appaws.NewSNSPublisher(awsCfg, cfg.Notifications.Events.TopicARN)
			zapLog.Info("SNS decision events enabled", zap.String("topic", cfg.Notifications.Events.TopicARN))
		}
	}

	// --- Components ---
	bot := telegram.NewClient(cfg.Telegram, log)

	modCfg := moderationworkflow.LoadConfig(cfg)
	var claims moderationworkflow.Claims = moderationworkflow.NewLocalClaims(modCfg.ClaimTTL)
	if rdb != nil {
		claims = moderationworkflow.NewRedisClaims(rdb, modCfg.ClaimTTL)
	}

	adminCfg := adminpanel.LoadConfig(cfg)
	statsCache := adminpanel.NewStatsCache(rdb, adminCfg.StatsCacheTTL, log)

	moderation := moderationworkflow.NewHandler(modCfg, moderationworkflow.Deps{
		Store:    st,
		Claims:   claims,
		Notifier: bot,
		Mailer:   mailer,
		Events:   events,
		Stats:    statsCache,
	}, log)

	intake := sessioncoordinator.NewHandler(st, moderation, log)
	moderation.AttachSessions(intake)
	admin := adminpanel.NewHandler(adminCfg, st, statsCache, intake, moderation, log)

	router := telegramrouter.New(&telegramrouter.Config{
		AdminChatID: modCfg.AdminChatID,
		GroupLink:   modCfg.GroupLink,
	}, bot, intake, moderation, admin, log)

	dispatcher := dispatch.New(cfg.Dispatch, router.HandleEvent, obs, log)

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context(), pg, rdb); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return dispatcher.Run(gctx)
	})

	// Pending reviews outlive restarts: announce them again before polling.
	if n, err := moderation.ResendPending(ctx); err != nil {
		zapLog.Error("pending reviews not re-announced", zap.Error(err))
	} else if n > 0 {
		zapLog.Info("pending reviews re-announced", zap.Int("count", n))
	}
	if err := router.SendStartupNotice(ctx); err != nil {
		zapLog.Warn("startup notice not delivered", zap.Error(err))
	}

	g.Go(func() error {
		zapLog.Info("polling Telegram for updates")
		return bot.Poll(gctx, router.OnUpdate(gctx, dispatcher))
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("gatekeeper stopped with error", zap.Error(err))
		os.Exit(1)
	}
	zapLog.Info("Gatekeeper stopped gracefully")
}

func ready(ctx context.Context, pg *database.PostgresClient, rdb *redis.Client) error {
	if pg != nil {
		if err := pg.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
