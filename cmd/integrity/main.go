// Command integrity runs a one-shot consistency check (and optionally a
// repair) against the configured database. Intended for operators and CI:
// exit code 0 means clean, 1 means divergence found, 2 means the run failed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/tipatpati/golden-phone-management-sub010/internal/config"
	"github.com/tipatpati/golden-phone-management-sub010/internal/infra"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"
	"github.com/tipatpati/golden-phone-management-sub010/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	repair := flag.Bool("repair", false, "apply auto-repair after the check")
	orphanAction := flag.String("orphan-action", "mark", "orphaned unit policy: mark | delete")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	productRepo := repository.NewProductRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	soldUnitRepo := repository.NewSoldUnitRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)

	checker := service.NewIntegrityChecker(productRepo, unitRepo, soldUnitRepo, saleRepo, movementRepo)

	ctx := context.Background()
	report, err := checker.RunCheck(ctx)
	if err != nil {
		log.Error().Err(err).Msg("check failed")
		os.Exit(2)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}

	if *repair && !report.Clean() {
		repairSvc := service.NewRepairService(checker, productRepo, unitRepo, saleRepo, movementRepo,
			service.RepairPolicy{OrphanAction: *orphanAction})
		result, err := repairSvc.AutoRepair(ctx, report)
		if err != nil {
			log.Error().Err(err).Msg("repair failed")
			os.Exit(2)
		}
		if result.Remaining == 0 && len(result.Errors) == 0 {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if report.Clean() {
		os.Exit(0)
	}
	os.Exit(1)
}
