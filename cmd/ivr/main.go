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

	"jobboard-ivr/internal/auth"
	"jobboard-ivr/internal/config"
	"jobboard-ivr/internal/directory"
	"jobboard-ivr/internal/ivr"
	"jobboard-ivr/internal/jobs"
	"jobboard-ivr/internal/messages"
	"jobboard-ivr/internal/payments"
	"jobboard-ivr/internal/subscriptions"
	"jobboard-ivr/pkg/logger"
	"jobboard-ivr/pkg/metrics"
	"jobboard-ivr/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional env file for local development; real deployments set env.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	opsAuth, err := auth.NewManager(cfg.Ops)
	if err != nil {
		log.Error("ops auth init failed", "err", err)
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

	m := metrics.New("jobboard_ivr")

	// Stores
	jobStore := jobs.NewSQLStore(db)
	subStore := subscriptions.NewSQLStore(db)
	payStore := payments.NewSQLStore(db)
	msgStore := messages.NewSQLStore(db)

	dir := directory.New(cfg.Provider.APIBaseURL, cfg.Provider.APIToken, log).
		WithCache(rdb, 0)

	claimAttempt := func(ctx context.Context, key string) (bool, error) {
		return utils.ClaimIdempotencyKey(ctx, rdb, key, 24*time.Hour)
	}

	gate := &payments.Gate{
		Store: payStore,
		// Charge capture is a pass/fail black box behind ChargeRequest; swap
		// in the real processor here.
		Charger:      payments.StubCharger{},
		ClaimAttempt: claimAttempt,
		Log:          log,
		M:            m,
	}

	queryEngine := jobs.NewQueryEngine(jobStore, m)
	browse := &jobs.Browse{Query: queryEngine, Store: jobStore, Gate: gate, Log: log}
	composer := jobs.NewComposer(jobStore, gate, log, m)

	subManager := subscriptions.NewManager(subStore, dir, log, m)
	subManager.RegistrationExt = cfg.Provider.RegistrationExt
	subManager.ManagementExt = cfg.Provider.ManagementExt
	subManager.ClaimAttempt = claimAttempt

	router := ivr.NewRouter(ivr.DefaultRouterPrompts())
	router.Handle(ivr.StateJobs, browse.Handler())
	router.Handle(ivr.StatePost, composer.Handler())
	router.Handle(ivr.StateSubscribe, subManager.SubscribeHandler())
	router.Handle(ivr.StateContact, ivr.ContactFlow(msgStore, log))
	router.Handle(ivr.StateUnsubscribe, subManager.UnsubscribeHandler())

	engine := ivr.NewEngine(router, log, m, cfg.Session.IdleTimeout)
	if cfg.Session.MaxConcurrentCalls > 0 {
		capKey := "calls:" + cfg.Provider.SystemNumber
		capTTL := cfg.Session.IdleTimeout + time.Minute
		engine.AcquireSlot = func(ctx context.Context) (bool, error) {
			return utils.AcquireConcurrencyCap(ctx, rdb, capKey, cfg.Session.MaxConcurrentCalls, capTTL)
		}
		engine.ReleaseSlot = func(ctx context.Context) {
			if err := utils.ReleaseConcurrencyCap(ctx, rdb, capKey); err != nil {
				log.Warn("concurrency cap release failed", "err", err)
			}
		}
	}

	sweeper := subscriptions.NewSweeper(subStore, log)
	if err := sweeper.Start(); err != nil {
		log.Error("pause sweeper init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		cfg:      cfg,
		engine:   engine,
		opsAuth:  opsAuth,
		payStore: payStore,
		msgStore: msgStore,
		db:       db,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("ivr listening", "addr", srv.Addr, "env", cfg.App.Env,
			"system_number", cfg.Provider.SystemNumber)
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
	engine.Shutdown()
	sweeper.Stop()

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
