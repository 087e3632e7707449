package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/model"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// IntegrityChecker scans the persisted aggregates for the four divergence
// classes. It is strictly read-only; repairs live in RepairService.
type IntegrityChecker interface {
	RunCheck(ctx context.Context) (*dto.IntegrityReport, error)
}

type integrityChecker struct {
	products  repository.ProductRepository
	units     repository.UnitRepository
	soldUnits repository.SoldUnitRepository
	sales     repository.SaleRepository
	movements repository.StockMovementRepository
}

func NewIntegrityChecker(
	products repository.ProductRepository,
	units repository.UnitRepository,
	soldUnits repository.SoldUnitRepository,
	sales repository.SaleRepository,
	movements repository.StockMovementRepository,
) IntegrityChecker {
	return &integrityChecker{
		products:  products,
		units:     units,
		soldUnits: soldUnits,
		sales:     sales,
		movements: movements,
	}
}

// scanState is the snapshot all four scans run against, loaded once.
type scanState struct {
	products      map[uuid.UUID]model.Product
	productList   []model.Product
	units         []model.ProductUnit
	unitsByID     map[uuid.UUID]model.ProductUnit
	unitsBySerial map[string]model.ProductUnit // productID+"\x00"+serial
	availByProd   map[uuid.UUID]int
	soldUnits     []model.SoldProductUnit
	soldByUnit    map[uuid.UUID]model.SoldProductUnit
	saleItems     []model.SaleItem
	openClaims    map[string]model.SaleItem // productID+"\x00"+serial, open sales only
	referencedUnits map[uuid.UUID]bool      // unit ids referenced by any sale line or sold record
	movementNet   map[uuid.UUID]int
}

func serialKey(productID uuid.UUID, serial string) string {
	return productID.String() + "\x00" + serial
}

func (c *integrityChecker) load(ctx context.Context) (*scanState, error) {
	st := &scanState{
		products:        make(map[uuid.UUID]model.Product),
		unitsByID:       make(map[uuid.UUID]model.ProductUnit),
		unitsBySerial:   make(map[string]model.ProductUnit),
		soldByUnit:      make(map[uuid.UUID]model.SoldProductUnit),
		openClaims:      make(map[string]model.SaleItem),
		referencedUnits: make(map[uuid.UUID]bool),
	}

	var err error
	if st.productList, err = c.products.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}
	for _, p := range st.productList {
		st.products[p.ID] = p
	}

	if st.units, err = c.units.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("loading units: %w", err)
	}
	st.availByProd = make(map[uuid.UUID]int)
	for _, u := range st.units {
		st.unitsByID[u.ID] = u
		st.unitsBySerial[serialKey(u.ProductID, u.Serial)] = u
		if u.Status == model.UnitStatusAvailable {
			st.availByProd[u.ProductID]++
		}
	}

	if st.soldUnits, err = c.soldUnits.ListAll(ctx); err != nil {
		return nil, fmt.Errorf("loading sold records: %w", err)
	}
	for _, s := range st.soldUnits {
		st.soldByUnit[s.UnitID] = s
		st.referencedUnits[s.UnitID] = true
	}

	if st.saleItems, err = c.sales.ListItems(ctx); err != nil {
		return nil, fmt.Errorf("loading sale items: %w", err)
	}
	for _, item := range st.saleItems {
		if item.UnitID != nil {
			st.referencedUnits[*item.UnitID] = true
		}
		if item.Serial != nil && item.Sale != nil && item.Sale.Status == model.SaleStatusOpen {
			st.openClaims[serialKey(item.ProductID, *item.Serial)] = item
		}
	}

	if st.movementNet, err = c.movements.NetByProduct(ctx); err != nil {
		return nil, fmt.Errorf("loading movement ledger: %w", err)
	}
	return st, nil
}

func (c *integrityChecker) RunCheck(ctx context.Context) (*dto.IntegrityReport, error) {
	st, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	report := &dto.IntegrityReport{
		CheckedAt:            time.Now().UTC(),
		StockMismatches:      c.scanStockMismatches(st),
		OrphanedUnits:        c.scanOrphanedUnits(st),
		InvalidSerialSales:   c.scanInvalidSerialSales(st),
		InconsistentStatuses: c.scanInconsistentStatuses(st),
	}
	report.Suggestions = buildSuggestions(report)

	log.Info().
		Int("stock_mismatches", len(report.StockMismatches)).
		Int("orphaned_units", len(report.OrphanedUnits)).
		Int("invalid_serial_sales", len(report.InvalidSerialSales)).
		Int("inconsistent_statuses", len(report.InconsistentStatuses)).
		Msg("integrity: check finished")
	return report, nil
}

// scanStockMismatches compares each product's recorded counter against the
// authoritative value: available-unit count for serialized products, the
// movement ledger net for bulk products.
func (c *integrityChecker) scanStockMismatches(st *scanState) []dto.StockMismatch {
	var findings []dto.StockMismatch
	for _, p := range st.productList {
		var actual int
		var reason string
		if p.HasSerial {
			actual = st.availByProd[p.ID]
			reason = "recorded stock differs from count of available units"
		} else {
			actual = st.movementNet[p.ID]
			reason = "recorded stock differs from movement ledger net"
		}
		if actual != p.Stock {
			findings = append(findings, dto.StockMismatch{
				ProductID:  p.ID.String(),
				Product:    p.DisplayName(),
				HasSerial:  p.HasSerial,
				Recorded:   p.Stock,
				Actual:     actual,
				Difference: actual - p.Stock,
				Reason:     reason,
			})
		}
	}
	return findings
}

func (c *integrityChecker) scanOrphanedUnits(st *scanState) []dto.OrphanedUnit {
	var findings []dto.OrphanedUnit
	for _, u := range st.units {
		// Sold and returned units are governed by their sale history; only
		// sellable stock can be orphaned.
		if u.Status != model.UnitStatusAvailable && u.Status != model.UnitStatusPending {
			continue
		}
		p, ok := st.products[u.ProductID]
		var reason string
		switch {
		case !ok:
			reason = "unit references a product that does not exist"
		case !p.Active:
			reason = "unit is available/pending but its product is inactive"
		default:
			continue
		}
		findings = append(findings, dto.OrphanedUnit{
			UnitID:    u.ID.String(),
			ProductID: u.ProductID.String(),
			Serial:    u.Serial,
			Status:    u.Status,
			Deletable: !st.referencedUnits[u.ID],
			Reason:    reason,
		})
	}
	return findings
}

// scanInvalidSerialSales validates both sides of the projection: sold-unit
// records against their units, and completed serialized sale lines against
// resolvable, sold units. Lines already flagged for manual review are in the
// operator's queue and excluded, which keeps repeated repairs idempotent.
func (c *integrityChecker) scanInvalidSerialSales(st *scanState) []dto.InvalidSerialSale {
	var findings []dto.InvalidSerialSale

	bySaleItem := make(map[uuid.UUID]model.SoldProductUnit, len(st.soldUnits))
	for _, s := range st.soldUnits {
		bySaleItem[s.SaleItemID] = s
		recordID := s.ID.String()
		u, ok := st.unitsByID[s.UnitID]
		var reason string
		switch {
		case !ok:
			reason = "sold record references a missing unit"
		case u.ProductID != s.ProductID:
			reason = "sold record and unit belong to different products"
		case u.Status != model.UnitStatusSold:
			reason = fmt.Sprintf("sold record references a unit in status %q", u.Status)
		default:
			continue
		}
		findings = append(findings, dto.InvalidSerialSale{
			SaleItemID:   s.SaleItemID.String(),
			SoldRecordID: &recordID,
			ProductID:    s.ProductID.String(),
			Serial:       s.Serial,
			Reason:       reason,
		})
	}

	for _, item := range st.saleItems {
		if item.Serial == nil || item.NeedsReview {
			continue
		}
		if item.Sale == nil || item.Sale.Status != model.SaleStatusCompleted {
			continue
		}
		u, ok := st.unitsBySerial[serialKey(item.ProductID, *item.Serial)]
		var reason string
		switch {
		case !ok:
			reason = "sale line references a serial with no matching unit"
		case u.Status != model.UnitStatusSold:
			reason = fmt.Sprintf("completed sale line references a unit in status %q", u.Status)
		default:
			continue
		}
		if _, dup := bySaleItem[item.ID]; dup && ok {
			// Already reported through its sold record.
			continue
		}
		findings = append(findings, dto.InvalidSerialSale{
			SaleItemID: item.ID.String(),
			ProductID:  item.ProductID.String(),
			Serial:     *item.Serial,
			Reason:     reason,
		})
	}
	return findings
}

// scanInconsistentStatuses re-derives each unit's status from its sale
// references: any non-cancelled reference (a sold record or an open sale line
// claiming the serial) means sold, no reference at all means available.
// Pending and returned units without references are legitimate.
func (c *integrityChecker) scanInconsistentStatuses(st *scanState) []dto.InconsistentStatus {
	var findings []dto.InconsistentStatus
	for _, u := range st.units {
		_, hasSoldRef := st.soldByUnit[u.ID]
		_, hasOpenClaim := st.openClaims[serialKey(u.ProductID, u.Serial)]

		var expected, reason string
		switch {
		case u.Status == model.UnitStatusSold && !hasSoldRef && !hasOpenClaim:
			expected = model.UnitStatusAvailable
			reason = "unit is sold but no sale reference claims it"
		case u.Status != model.UnitStatusSold && hasSoldRef:
			expected = model.UnitStatusSold
			reason = "unit has a sold record but is not in status sold"
		case u.Status == model.UnitStatusAvailable && hasOpenClaim:
			expected = model.UnitStatusSold
			reason = "unit is available but an open sale line claims it"
		default:
			continue
		}
		findings = append(findings, dto.InconsistentStatus{
			UnitID:    u.ID.String(),
			ProductID: u.ProductID.String(),
			Serial:    u.Serial,
			Status:    u.Status,
			Expected:  expected,
			Reason:    reason,
		})
	}
	return findings
}

func buildSuggestions(r *dto.IntegrityReport) []string {
	var s []string
	if len(r.StockMismatches) > 0 {
		s = append(s, "Run auto-repair to overwrite recorded stock with the recomputed values.")
	}
	if len(r.OrphanedUnits) > 0 {
		s = append(s, "Orphaned units can be marked as returned automatically; review them before enabling destructive cleanup.")
	}
	if len(r.InvalidSerialSales) > 0 {
		s = append(s, "Invalid serialized sales are flagged for manual review; sales history is never deleted automatically.")
	}
	if len(r.InconsistentStatuses) > 0 {
		s = append(s, "Unit statuses can be re-derived from their sale references by auto-repair.")
	}
	if len(s) == 0 {
		s = append(s, "No divergence detected.")
	}
	return s
}
