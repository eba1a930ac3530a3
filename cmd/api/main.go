package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"amora-platform/internal/audit"
	"amora-platform/internal/auth"
	"amora-platform/internal/callsession"
	"amora-platform/internal/config"
	"amora-platform/internal/httpapi"
	"amora-platform/internal/ledger"
	"amora-platform/internal/metrics"
	"amora-platform/internal/rates"
	"amora-platform/internal/reporting"
	"amora-platform/internal/rewards"
	"amora-platform/internal/settlement"
	"amora-platform/internal/users"
	"amora-platform/pkg/logger"
	"amora-platform/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	m := metrics.New()

	// Storage
	userStore := users.NewPostgresStore(db)
	rateRepo := rates.NewPostgresRepo(db)
	sessionStore := callsession.NewPostgresStore(db)
	settlementStore := settlement.NewPostgresStore(db)
	rewardStore := rewards.NewPostgresStore(db)
	ledgerStore := ledger.NewPostgresStore(db)
	auditRepo := audit.NewPostgresRepo(db)

	// Services
	resolver := rates.NewResolver(rateRepo)
	auditSvc := audit.NewService(auditRepo)
	ratesAdmin := rates.NewAdminService(rateRepo, auditSvc)
	callSvc := callsession.NewService(userStore, resolver, sessionStore, rdb,
		cfg.Billing.SessionTTL, cfg.Billing.MinBillableSeconds, log)
	engine := settlement.NewEngine(settlementStore, rdb, cfg.Billing.MinBillableSeconds, log)
	rewardSvc := rewards.NewService(rewardStore, log)
	reportSvc := reporting.NewService(reporting.NewPostgresRepo(db))

	// Settlement fires rewards post-commit, fire-and-forget.
	dispatcher := rewards.NewDispatcher(rewardSvc, 10*time.Second, log)
	engine.OnSettled(dispatcher.OnCallSettled)

	// Background expiry sweep for abandoned sessions.
	reaper := callsession.NewReaper(sessionStore, cfg.Billing.ReaperInterval, log)
	go reaper.Run(rootCtx)

	handlers := httpapi.Handlers{
		Auth:       authManager,
		Users:      userStore,
		Calls:      callSvc,
		Settlement: engine,
		Rewards:    rewardSvc,
		Reporting:  reportSvc,
		RatesAdmin: ratesAdmin,
		Ledger:     ledgerStore,
		Metrics:    m,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, auth.RequireAccessToken(authManager), db, m)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
