package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tipatpati/golden-phone-management-sub010/internal/config"
	"github.com/tipatpati/golden-phone-management-sub010/internal/infra"
	"github.com/tipatpati/golden-phone-management-sub010/internal/notify"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"
	"github.com/tipatpati/golden-phone-management-sub010/internal/router"
	"github.com/tipatpati/golden-phone-management-sub010/internal/service"
	"github.com/tipatpati/golden-phone-management-sub010/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Structured logger — dev: pretty, prod: JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channel := notify.NewRedisChannel(rdb)

	// Background machinery: the change-event listener driving the
	// synchronizer, the retry worker pool, and the integrity cron.
	productRepo := repository.NewProductRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	soldUnitRepo := repository.NewSoldUnitRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	stockEntryRepo := repository.NewStockEntryRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)

	syncSvc := service.NewSyncService(productRepo, unitRepo, supplierRepo, stockEntryRepo, movementRepo, channel)
	checker := service.NewIntegrityChecker(productRepo, unitRepo, soldUnitRepo, saleRepo, movementRepo)
	repairSvc := service.NewRepairService(checker, productRepo, unitRepo, saleRepo, movementRepo,
		service.RepairPolicy{OrphanAction: cfg.OrphanRepairAction})

	dispatcher := worker.NewDispatcher(rdb)
	listener := worker.NewSyncListener(channel, supplierRepo, syncSvc, dispatcher)
	stopListener, err := listener.Start(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start sync listener")
	}
	defer stopListener()

	worker.StartWorkerPool(ctx, worker.PoolConfig{
		RDB:        rdb,
		Suppliers:  supplierRepo,
		Sync:       syncSvc,
		MaxRetries: cfg.SyncMaxRetries,
		NumWorkers: cfg.WorkerPoolSize,
	})

	worker.StartIntegrityCron(ctx, worker.IntegrityCronConfig{
		Checker:    checker,
		Repair:     repairSvc,
		CB:         infra.NewCircuitBreaker(infra.DefaultCBConfig()),
		Interval:   cfg.IntegrityInterval,
		AutoRepair: cfg.AutoRepair,
	})

	r := router.New(cfg, db, rdb, channel)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("inventory engine listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
