package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/09wizardguy/SignalBox/internal/application"
	"github.com/09wizardguy/SignalBox/internal/bot"
	"github.com/09wizardguy/SignalBox/internal/common/config"
	"github.com/09wizardguy/SignalBox/internal/common/logger"
	"github.com/09wizardguy/SignalBox/internal/invites"
	"github.com/09wizardguy/SignalBox/internal/minecraft"
	"github.com/09wizardguy/SignalBox/internal/reminder"
	"github.com/09wizardguy/SignalBox/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := logger.NewZapAdapter(zapLogger)

	log.Info("starting signalbox", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		zapLogger.Fatal("failed to create data directory", zap.Error(err))
	}

	reminderStore := store.Open[[]reminder.Reminder](cfg.RemindersPath(), log,
		store.WithName("reminders"), store.WithSchema(reminder.StoreSchema))
	applicationStore := store.Open[application.Application](cfg.ApplicationsPath(), log,
		store.WithName("applications"), store.WithSchema(application.StoreSchema))
	inviteStore := store.Open[invites.MemberInvite](cfg.InvitesPath(), log,
		store.WithName("invites"), store.WithSchema(invites.StoreSchema))

	profiles := minecraft.NewProfileClient(
		cfg.Minecraft.MojangAPIBaseURL,
		config.GetDuration(cfg.Minecraft.LookupTimeout),
		log,
	)
	if cfg.Redis.Enabled {
		cache := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(context.Background()).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, profile cache disabled", nil)
		} else {
			profiles = profiles.WithCache(cache, config.GetDuration(cfg.Redis.CacheTTL))
			defer cache.Close()
		}
	}

	whitelist := minecraft.NewWhitelistClient(cfg.Minecraft.RCON, log)
	if !cfg.Minecraft.RCON.Configured() {
		log.Warn("rcon not configured, whitelist side effects disabled", nil)
	}

	reminders := reminder.NewManager(reminderStore, log)
	notifier := &deferredNotifier{}
	workflow := application.NewWorkflow(
		application.NewManager(applicationStore, log),
		mojangLookup{profiles},
		whitelist,
		notifier,
		config.GetDuration(cfg.Staging.TTL),
		log,
	)
	tracker := invites.NewTracker(inviteStore, log)

	b, err := bot.New(cfg, reminders, workflow, tracker, log)
	if err != nil {
		zapLogger.Fatal("failed to create bot", zap.Error(err))
	}
	notifier.bot = b

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics.Address, log)
	}

	if err := retryWithBackoff(func() error { return b.Start() }, 5, 2*time.Second, log); err != nil {
		zapLogger.Fatal("failed to connect to discord", zap.Error(err))
	}

	log.Info("signalbox is running, press ctrl+c to exit", nil)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down", nil)
	b.Stop()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("metrics server shutdown failed", nil)
		}
	}

	log.Info("goodbye", nil)
}

// deferredNotifier breaks the construction cycle between the workflow
// and the bot: the workflow needs a notifier before the bot exists.
type deferredNotifier struct {
	bot *bot.Bot
}

func (n *deferredNotifier) DirectMessage(userID, content string) error {
	if n.bot == nil {
		return fmt.Errorf("notifier not connected")
	}
	return n.bot.DirectMessage(userID, content)
}

// mojangLookup adapts the minecraft profile client to the workflow's
// lookup interface.
type mojangLookup struct {
	client *minecraft.ProfileClient
}

func (m mojangLookup) Lookup(ctx context.Context, username string) (application.Profile, error) {
	p, err := m.client.Lookup(ctx, username)
	return application.Profile{ID: p.ID, Name: p.Name, Valid: p.Valid}, err
}

func startMetricsServer(address string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: address, Handler: mux}
	go func() {
		log.Info("metrics server listening", map[string]interface{}{"address": address})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server failed", nil)
		}
	}()
	return srv
}

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger) error {
	var err error
	delay := initialDelay
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		log.WithError(err).Warn("operation failed, retrying", map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
		})
		time.Sleep(delay)
		delay *= 2
	}
	return err
}
