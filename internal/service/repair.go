package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/model"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Orphaned-unit repair policies. Mark is the default: units may carry sale
// history, so destruction requires an explicit opt-in and still only applies
// to units nothing references.
const (
	OrphanActionMark   = "mark"
	OrphanActionDelete = "delete"
)

// RepairPolicy tunes the destructive edges of the repair engine.
type RepairPolicy struct {
	OrphanAction string
}

// RepairService consumes an integrity report and applies deterministic,
// idempotent corrections. A failure on one finding never aborts the rest.
type RepairService interface {
	// AutoRepair repairs the given report, or runs a fresh check when report
	// is nil, then re-checks to confirm convergence.
	AutoRepair(ctx context.Context, report *dto.IntegrityReport) (*dto.RepairResult, error)
}

type repairService struct {
	checker   IntegrityChecker
	products  repository.ProductRepository
	units     repository.UnitRepository
	sales     repository.SaleRepository
	movements repository.StockMovementRepository
	policy    RepairPolicy
}

func NewRepairService(
	checker IntegrityChecker,
	products repository.ProductRepository,
	units repository.UnitRepository,
	sales repository.SaleRepository,
	movements repository.StockMovementRepository,
	policy RepairPolicy,
) RepairService {
	if policy.OrphanAction == "" {
		policy.OrphanAction = OrphanActionMark
	}
	return &repairService{
		checker:   checker,
		products:  products,
		units:     units,
		sales:     sales,
		movements: movements,
		policy:    policy,
	}
}

func (s *repairService) AutoRepair(ctx context.Context, report *dto.IntegrityReport) (*dto.RepairResult, error) {
	var err error
	if report == nil {
		if report, err = s.checker.RunCheck(ctx); err != nil {
			return nil, fmt.Errorf("pre-repair check: %w", err)
		}
	}

	result := &dto.RepairResult{Errors: []string{}}

	s.repairStockMismatches(ctx, report.StockMismatches, result)
	s.repairOrphanedUnits(ctx, report.OrphanedUnits, result)
	s.repairInvalidSerialSales(ctx, report.InvalidSerialSales, result)
	s.repairInconsistentStatuses(ctx, report.InconsistentStatuses, result)

	// Re-check to confirm convergence. A clean second report is also what
	// makes back-to-back repairs report zero work.
	after, err := s.checker.RunCheck(ctx)
	if err != nil {
		return nil, fmt.Errorf("post-repair check: %w", err)
	}
	result.Remaining = after.TotalFindings()

	log.Info().
		Int("repaired", result.Repaired).
		Int("remaining", result.Remaining).
		Int("errors", len(result.Errors)).
		Msg("repair: run finished")
	return result, nil
}

// repairStockMismatches overwrites the recorded counter with the computed
// actual value and leaves a repair movement so the ledger stays consistent
// with the overwrite.
func (s *repairService) repairStockMismatches(ctx context.Context, findings []dto.StockMismatch, result *dto.RepairResult) {
	for _, f := range findings {
		pid, err := uuid.Parse(f.ProductID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stock mismatch %s: %v", f.ProductID, err))
			continue
		}
		if err := s.products.SetStock(ctx, pid, f.Actual); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stock mismatch %s: %v", f.Product, err))
			continue
		}
		mov := &model.StockMovement{
			ProductID:   pid,
			Type:        model.MovementRepair,
			Quantity:    f.Difference,
			StockBefore: f.Recorded,
			StockAfter:  f.Actual,
			Reason:      f.Reason,
		}
		if err := s.movements.CreateTx(s.products.DB(), mov); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("stock mismatch %s: movement: %v", f.Product, err))
			continue
		}
		result.Repaired++
	}
}

func (s *repairService) repairOrphanedUnits(ctx context.Context, findings []dto.OrphanedUnit, result *dto.RepairResult) {
	for _, f := range findings {
		uid, err := uuid.Parse(f.UnitID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("orphaned unit %s: %v", f.UnitID, err))
			continue
		}
		if s.policy.OrphanAction == OrphanActionDelete && f.Deletable {
			if err := s.units.Delete(ctx, uid); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("orphaned unit %s: %v", f.Serial, err))
				continue
			}
			if f.Status == model.UnitStatusAvailable {
				s.shiftAvailableCounter(ctx, f.ProductID, -1, f.Serial, result)
			}
			result.Repaired++
			continue
		}
		// Mark policy, or a unit with financial history: terminal marker only.
		if f.Status == model.UnitStatusReturned {
			continue // already terminal — nothing to repair
		}
		if err := s.units.UpdateStatusTx(s.products.DB(), uid, model.UnitStatusReturned); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("orphaned unit %s: %v", f.Serial, err))
			continue
		}
		if f.Status == model.UnitStatusAvailable {
			s.shiftAvailableCounter(ctx, f.ProductID, -1, f.Serial, result)
		}
		result.Repaired++
	}
}

// repairInvalidSerialSales flags the sale line for manual review. Sales
// history is financial history: never auto-deleted, never auto-rewritten.
func (s *repairService) repairInvalidSerialSales(ctx context.Context, findings []dto.InvalidSerialSale, result *dto.RepairResult) {
	for _, f := range findings {
		itemID, err := uuid.Parse(f.SaleItemID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid serial sale %s: %v", f.SaleItemID, err))
			continue
		}
		if err := s.sales.FlagItemForReview(ctx, itemID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("invalid serial sale %s: %v", f.Serial, err))
			continue
		}
		result.Repaired++
	}
}

// repairInconsistentStatuses writes the status the checker re-derived from
// the unit's sale references and keeps the availability projection aligned,
// so the flip does not surface as a stock mismatch on the re-check.
func (s *repairService) repairInconsistentStatuses(ctx context.Context, findings []dto.InconsistentStatus, result *dto.RepairResult) {
	for _, f := range findings {
		uid, err := uuid.Parse(f.UnitID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("inconsistent status %s: %v", f.UnitID, err))
			continue
		}
		if err := s.units.UpdateStatusTx(s.products.DB(), uid, f.Expected); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("inconsistent status %s: %v", f.Serial, err))
			continue
		}
		switch {
		case f.Status == model.UnitStatusAvailable && f.Expected != model.UnitStatusAvailable:
			s.shiftAvailableCounter(ctx, f.ProductID, -1, f.Serial, result)
		case f.Status != model.UnitStatusAvailable && f.Expected == model.UnitStatusAvailable:
			s.shiftAvailableCounter(ctx, f.ProductID, +1, f.Serial, result)
		}
		result.Repaired++
	}
}

// shiftAvailableCounter moves a product's stock counter when a repair takes a
// unit in or out of circulation. Ghost products (the unit's product row no
// longer exists) have no counter to maintain and are skipped.
func (s *repairService) shiftAvailableCounter(ctx context.Context, productID string, delta int, serial string, result *dto.RepairResult) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("counter shift for unit %s: %v", serial, err))
		return
	}
	product, err := s.products.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return
		}
		result.Errors = append(result.Errors, fmt.Sprintf("counter shift for unit %s: %v", serial, err))
		return
	}
	before := product.Stock
	if err := s.products.IncrementStockTx(s.products.DB(), pid, delta); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("counter shift for unit %s: %v", serial, err))
		return
	}
	mov := &model.StockMovement{
		ProductID:   pid,
		Type:        model.MovementRepair,
		Quantity:    delta,
		StockBefore: before,
		StockAfter:  before + delta,
		Reason:      fmt.Sprintf("unit %s status repair", serial),
	}
	if err := s.movements.CreateTx(s.products.DB(), mov); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("counter shift for unit %s: movement: %v", serial, err))
	}
}
