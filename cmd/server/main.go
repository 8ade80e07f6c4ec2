package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/askbird/askbird/internal/app"
	"github.com/askbird/askbird/internal/bus"
	"github.com/askbird/askbird/internal/config"
	"github.com/askbird/askbird/internal/database"
	"github.com/askbird/askbird/internal/domain"
	"github.com/askbird/askbird/internal/feature"
	"github.com/askbird/askbird/internal/follow"
	"github.com/askbird/askbird/internal/logging"
	"github.com/askbird/askbird/internal/server"
	"github.com/askbird/askbird/internal/vote"
)

func setupConfig() *config.Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	opts, err := goredis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}

	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return client
}

func runGracefulShutdown(srv *server.Server, hub *bus.Hub, cancelRelay context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if cancelRelay != nil {
			cancelRelay()
		}
		hub.Stop()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	store := database.NewStore(pool)
	hub := bus.NewHub(clock, cfg.MaxClientsPerRoom)

	// Without Redis the bus degrades to single-instance fan-out.
	var (
		sink        domain.EventSink = hub
		redisClient *goredis.Client
		cancelRelay context.CancelFunc
	)
	if cfg.RedisURL != "" {
		redisClient = setupRedis(cfg)
		defer func() { _ = redisClient.Close() }()

		relay := bus.NewRelay(hub, redisClient)
		sink = relay

		var relayCtx context.Context
		relayCtx, cancelRelay = context.WithCancel(context.Background())
		go relay.Start(relayCtx)
	}

	appSvc := app.NewService(store, sink)
	voteSvc := vote.NewService(store, sink)
	followSvc := follow.NewService(store)
	featureSvc := feature.NewService(store, store, store, sink)

	srv := server.NewServer(cfg, appSvc, voteSvc, followSvc, featureSvc, hub, pool, redisClient)

	done := runGracefulShutdown(srv, hub, cancelRelay)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
