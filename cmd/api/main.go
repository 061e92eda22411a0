package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/fraudlab/cardsim-backend/internal/api"
	"github.com/fraudlab/cardsim-backend/internal/api/handlers"
	"github.com/fraudlab/cardsim-backend/internal/auth"
	"github.com/fraudlab/cardsim-backend/internal/config"
	"github.com/fraudlab/cardsim-backend/internal/db"
	"github.com/fraudlab/cardsim-backend/internal/logger"
	"github.com/fraudlab/cardsim-backend/internal/metrics"
	"github.com/fraudlab/cardsim-backend/internal/middleware"
	"github.com/fraudlab/cardsim-backend/internal/notify"
	"github.com/fraudlab/cardsim-backend/internal/repository/postgres"
	"github.com/fraudlab/cardsim-backend/internal/services"
	"github.com/fraudlab/cardsim-backend/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	store := postgres.NewStore(pool)
	repos := store.Repos()

	wp := worker.NewPool(4)
	defer wp.Stop()

	var notifier notify.Notifier = notify.Noop{}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("cardsim-backend"))
		if err != nil {
			log.Error("nats connect", "err", err)
			os.Exit(1)
		}
		defer nc.Drain()
		notifier = notify.NewNATS(nc)
	}

	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("redis url", "err", err)
			os.Exit(1)
		}
		c := redis.NewClient(opts)
		defer c.Close()
		rdb = c
	}

	tm := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTRefresh, cfg.JWTIssuer, 15*time.Minute, 7*24*time.Hour)

	userSvc := services.NewUserService(repos.Users, tm, cfg)
	cardSvc := services.NewCardService(store, repos)
	otpSvc := services.NewOtpService(store, repos, notifier, wp, cfg.OtpTTL)
	fraudSvc := services.NewFraudService(store, repos, notifier, wp)
	unlockSvc := services.NewUnlockService(store, repos, notifier, wp, cfg.UnlockTTL)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:    cfg,
		Auth:   middleware.NewAuthMiddleware(tm, cfg.Env),
		Users:  handlers.NewAuthHandler(userSvc),
		Credit: handlers.NewCreditHandler(cardSvc, otpSvc),
		Fraud:  handlers.NewFraudHandler(otpSvc, fraudSvc),
		Unlock: handlers.NewUnlockHandler(unlockSvc),
		Redis:  rdb,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
