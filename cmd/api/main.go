package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	httpadp "collateral-loan-engine/internal/adapter/http"
	"collateral-loan-engine/internal/adapter/middleware"
	repo "collateral-loan-engine/internal/adapter/repository/mysql"
	"collateral-loan-engine/internal/config"
	"collateral-loan-engine/internal/domain/custody"
	"collateral-loan-engine/internal/infrastructure/cache"
	"collateral-loan-engine/internal/infrastructure/db"
	"collateral-loan-engine/internal/logging"
	"collateral-loan-engine/internal/usecase/loan"
	"collateral-loan-engine/internal/usecase/outbox"
)

func main() {
	logger := logging.ConfigureRuntime()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("open mysql")
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(gdb, repo.Models()...); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal().Err(err).Msg("open redis")
	}
	defer rdb.Close()

	var locker repo.Locker = &repo.LocalLocker{}
	if cfg.LockBackend == config.LockRedis {
		locker = cache.NewRedisLocker(rdb, cfg.LockKey, cfg.LockTTL, cfg.LockWait)
	}

	// The ledger is the in-database asset rail; notes live alongside it.
	engine := loan.NewEngine(cfg.Custody(), loan.Deps{
		UoW:           repo.NewGormUoW(gdb, locker),
		Rails:         repo.NewLedger(gdb),
		BorrowerNotes: repo.NewNoteRepository(gdb, repo.NoteBorrower),
		LenderNotes:   repo.NewNoteRepository(gdb, repo.NoteLender),
		FeePolicy:     custody.FixedFee(cfg.OriginationFeeBps),
	}, loan.WithLogger(logger.With().Str("component", "engine").Logger()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if admin, feeClaimer, ok := cfg.BootstrapAccounts(); ok {
		if err := engine.Bootstrap(ctx, admin, feeClaimer); err != nil {
			log.Fatal().Err(err).Msg("bootstrap roles")
		}
	}

	relay := outbox.NewRelay(
		repo.NewEventRepository(gdb),
		cache.NewStreamPublisher(rdb, cfg.EventStream),
		outbox.WithInterval(cfg.RelayInterval),
		outbox.WithBatchSize(cfg.RelayBatch),
		outbox.WithLogger(logger.With().Str("component", "outbox").Logger()),
	)
	go relay.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Recover(), middleware.RequestLogger(logger))

	idem := middleware.Idempotency(rdb, middleware.IdempotencyConfig{
		TTL:    time.Duration(cfg.IdempTTLSecs) * time.Second,
		Logger: &logger,
	})
	health := httpadp.NewHandler(
		httpadp.Check{Name: "mysql", Probe: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}},
		httpadp.Check{Name: "redis", Probe: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)
	httpadp.Register(e, health, httpadp.NewLoanHandler(engine), httpadp.NewAdminHandler(engine), idem)

	go func() {
		addr := ":" + cfg.AppPort
		log.Info().Str("addr", addr).Str("custody", cfg.Custody().Hex()).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}
