package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/model"
	"github.com/tipatpati/golden-phone-management-sub010/internal/notify"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// SyncService turns supplier acquisition items into inventory: stock counter
// deltas, serialized unit creation/update, and the movement audit trail.
// Processing is idempotent under at-least-once event delivery: the stock-entry
// ledger records what was already applied per item, and units are keyed by
// (product, serial).
type SyncService interface {
	SynchronizeTransaction(ctx context.Context, txnID uuid.UUID) (*dto.SyncResult, error)
	SynchronizeItem(ctx context.Context, item *model.SupplierTransactionItem) (*dto.SyncResult, error)
	// CompensateItemDelete reverts what SynchronizeItem applied when an
	// acquisition item is removed before its transaction is archived. Sold
	// units are never touched.
	CompensateItemDelete(ctx context.Context, item *model.SupplierTransactionItem) error
}

type syncService struct {
	products  repository.ProductRepository
	units     repository.UnitRepository
	suppliers repository.SupplierRepository
	entries   repository.StockEntryRepository
	movements repository.StockMovementRepository
	channel   notify.Channel
}

func NewSyncService(
	products repository.ProductRepository,
	units repository.UnitRepository,
	suppliers repository.SupplierRepository,
	entries repository.StockEntryRepository,
	movements repository.StockMovementRepository,
	channel notify.Channel,
) SyncService {
	return &syncService{
		products:  products,
		units:     units,
		suppliers: suppliers,
		entries:   entries,
		movements: movements,
		channel:   channel,
	}
}

// SynchronizeTransaction processes every item of a completed purchase
// transaction. One item failing never blocks the others; its error lands in
// the aggregate result.
func (s *syncService) SynchronizeTransaction(ctx context.Context, txnID uuid.UUID) (*dto.SyncResult, error) {
	txn, err := s.suppliers.FindTransaction(ctx, txnID)
	if err != nil {
		return nil, fmt.Errorf("loading transaction %s: %w", txnID, err)
	}

	result := &dto.SyncResult{Success: true, Errors: []string{}}
	if txn.Status != model.TransactionStatusCompleted || txn.Type != model.TransactionTypePurchase {
		log.Debug().
			Str("transaction_id", txnID.String()).
			Str("status", txn.Status).
			Str("type", txn.Type).
			Msg("sync: transaction not eligible, skipping")
		return result, nil
	}

	for i := range txn.Items {
		item := txn.Items[i]
		item.Transaction = txn
		r, err := s.SynchronizeItem(ctx, &item)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("item %s: %v", item.ID, err))
			result.Success = false
			continue
		}
		result.Merge(*r)
	}
	return result, nil
}

func (s *syncService) SynchronizeItem(ctx context.Context, item *model.SupplierTransactionItem) (*dto.SyncResult, error) {
	result := &dto.SyncResult{Success: true, Errors: []string{}}

	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		// A missing product is a data problem on this item, not a reason to
		// fail the batch. Reported, logged, retried by the caller's pipeline.
		log.Error().Err(err).
			Str("item_id", item.ID.String()).
			Str("product_id", item.ProductID.String()).
			Msg("sync: acquisition item references unknown product")
		result.Success = false
		result.Errors = append(result.Errors, fmt.Sprintf("product %s not found", item.ProductID))
		return result, nil
	}

	applied := 0
	entry, err := s.entries.FindBySource(ctx, model.SourceSupplierItem, item.ID)
	switch {
	case errors.Is(err, repository.ErrEntryNotFound):
		entry = &model.StockEntry{
			SourceType: model.SourceSupplierItem,
			SourceID:   item.ID,
			ProductID:  item.ProductID,
		}
	case err != nil:
		return nil, fmt.Errorf("reading stock entry: %w", err)
	default:
		applied = entry.AppliedQuantity
	}
	delta := item.Quantity - applied

	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if delta != 0 {
			if err := s.products.IncrementStockTx(tx, product.ID, delta); err != nil {
				return fmt.Errorf("applying stock delta: %w", err)
			}
			ref := item.ID
			mov := &model.StockMovement{
				ProductID:   product.ID,
				Type:        model.MovementAcquisition,
				Quantity:    delta,
				StockBefore: product.Stock,
				StockAfter:  product.Stock + delta,
				Reason:      "supplier acquisition",
				ReferenceID: &ref,
			}
			if err := s.movements.CreateTx(tx, mov); err != nil {
				return fmt.Errorf("recording movement: %w", err)
			}
			entry.AppliedQuantity = item.Quantity
			if err := s.entries.SaveTx(tx, entry); err != nil {
				return fmt.Errorf("saving stock entry: %w", err)
			}
		}
		if !product.HasSerial {
			return nil
		}
		if len(item.CreatedUnitIDs) > 0 {
			return s.updateCreatedUnits(ctx, tx, item, result)
		}
		return s.createUnits(ctx, tx, item, product, result)
	})
	if err != nil {
		return nil, err
	}
	result.StockDelta = delta

	if delta != 0 {
		log.Info().
			Str("item_id", item.ID.String()).
			Str("product", product.DisplayName()).
			Int("delta", delta).
			Int("created_units", result.CreatedUnits).
			Int("updated_units", result.UpdatedUnits).
			Msg("sync: item applied")
	}
	s.publish(ctx, notify.TableProducts, notify.ActionUpdate, product.ID, product.ID)
	if result.CreatedUnits > 0 || result.UpdatedUnits > 0 {
		s.publish(ctx, notify.TableProductUnits, notify.ActionUpdate, item.ID, product.ID)
	}
	return result, nil
}

// updateCreatedUnits re-applies pricing and attributes to units this item
// already created. Per-serial entry pricing beats the line's flat unit cost.
func (s *syncService) updateCreatedUnits(ctx context.Context, tx *gorm.DB, item *model.SupplierTransactionItem, result *dto.SyncResult) error {
	existing, err := s.units.FindByIDs(ctx, item.CreatedUnitIDs)
	if err != nil {
		return fmt.Errorf("loading created units: %w", err)
	}
	entriesBySerial := make(map[string]model.UnitEntry, len(item.UnitEntries))
	for _, e := range item.UnitEntries {
		entriesBySerial[e.Serial] = e
	}
	for i := range existing {
		u := &existing[i]
		u.PurchasePrice = item.UnitCost
		u.SellPrice = item.UnitCost
		if e, ok := entriesBySerial[u.Serial]; ok {
			applyEntry(u, e)
		}
		if err := s.units.UpdateTx(tx, u); err != nil {
			return fmt.Errorf("updating unit %s: %w", u.Serial, err)
		}
		result.UpdatedUnits++
	}
	return nil
}

// createUnits materializes the item's unit entries as available units. A
// serial that already exists for the product is adopted instead of duplicated,
// so a redelivered insert event cannot create twins.
func (s *syncService) createUnits(ctx context.Context, tx *gorm.DB, item *model.SupplierTransactionItem, product *model.Product, result *dto.SyncResult) error {
	created := make(model.UUIDList, 0, len(item.UnitEntries))
	for _, e := range item.UnitEntries {
		if existing, err := s.units.FindByProductAndSerial(ctx, product.ID, e.Serial); err == nil {
			existing.PurchasePrice = item.UnitCost
			existing.SellPrice = item.UnitCost
			applyEntry(existing, e)
			if err := s.units.UpdateTx(tx, existing); err != nil {
				return fmt.Errorf("adopting unit %s: %w", e.Serial, err)
			}
			created = append(created, existing.ID)
			result.UpdatedUnits++
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("looking up serial %s: %w", e.Serial, err)
		}

		// Without a per-serial entry the unit sells at the line's flat unit
		// cost; an entry price overrides it below.
		u := &model.ProductUnit{
			ProductID:     product.ID,
			Serial:        e.Serial,
			Status:        model.UnitStatusAvailable,
			PurchasePrice: item.UnitCost,
			SellPrice:     item.UnitCost,
			MinPrice:      product.MinPrice,
			MaxPrice:      product.MaxPrice,
		}
		applyEntry(u, e)
		if err := s.units.CreateTx(tx, u); err != nil {
			return fmt.Errorf("creating unit %s: %w", e.Serial, err)
		}
		created = append(created, u.ID)
		result.CreatedUnits++
	}
	if len(created) == 0 {
		return nil
	}
	item.CreatedUnitIDs = created
	if err := s.suppliers.UpdateItemTx(tx, item); err != nil {
		return fmt.Errorf("writing back created unit ids: %w", err)
	}
	return nil
}

func (s *syncService) CompensateItemDelete(ctx context.Context, item *model.SupplierTransactionItem) error {
	entry, err := s.entries.FindBySource(ctx, model.SourceSupplierItem, item.ID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return nil // never applied, nothing to revert
	}
	if err != nil {
		return fmt.Errorf("reading stock entry: %w", err)
	}

	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return fmt.Errorf("loading product: %w", err)
	}

	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if entry.AppliedQuantity != 0 {
			if err := s.products.IncrementStockTx(tx, product.ID, -entry.AppliedQuantity); err != nil {
				return fmt.Errorf("reverting stock delta: %w", err)
			}
			ref := item.ID
			mov := &model.StockMovement{
				ProductID:   product.ID,
				Type:        model.MovementAcquisitionReversal,
				Quantity:    -entry.AppliedQuantity,
				StockBefore: product.Stock,
				StockAfter:  product.Stock - entry.AppliedQuantity,
				Reason:      "acquisition item removed",
				ReferenceID: &ref,
			}
			if err := s.movements.CreateTx(tx, mov); err != nil {
				return fmt.Errorf("recording movement: %w", err)
			}
		}
		if err := s.entries.DeleteBySourceTx(tx, model.SourceSupplierItem, item.ID); err != nil {
			return fmt.Errorf("deleting stock entry: %w", err)
		}
		for _, id := range item.CreatedUnitIDs {
			u, err := s.units.FindByID(ctx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return fmt.Errorf("loading unit %s: %w", id, err)
			}
			if u.Status == model.UnitStatusSold {
				// Sale history wins over the acquisition rollback.
				log.Warn().
					Str("unit_id", id.String()).
					Str("serial", u.Serial).
					Msg("sync: compensation skipping sold unit")
				continue
			}
			if err := s.units.UpdateStatusTx(tx, id, model.UnitStatusPending); err != nil {
				return fmt.Errorf("reverting unit %s: %w", u.Serial, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("item_id", item.ID.String()).
		Int("reverted", entry.AppliedQuantity).
		Msg("sync: item compensated")
	s.publish(ctx, notify.TableProducts, notify.ActionUpdate, product.ID, product.ID)
	return nil
}

// applyEntry copies the per-unit overrides present on an acquisition entry.
func applyEntry(u *model.ProductUnit, e model.UnitEntry) {
	if e.Price != nil {
		u.SellPrice = *e.Price
	}
	if e.MinPrice != nil {
		u.MinPrice = *e.MinPrice
	}
	if e.MaxPrice != nil {
		u.MaxPrice = *e.MaxPrice
	}
	if e.Color != nil {
		u.Color = e.Color
	}
	if e.Storage != nil {
		u.Storage = e.Storage
	}
	if e.RAM != nil {
		u.RAM = e.RAM
	}
	if e.BatteryLevel != nil {
		u.BatteryLevel = e.BatteryLevel
	}
}

func (s *syncService) publish(ctx context.Context, table string, action notify.Action, rowID, productID uuid.UUID) {
	if s.channel == nil {
		return
	}
	e := notify.Event{
		Table:      table,
		Action:     action,
		RowID:      rowID.String(),
		ProductIDs: []string{productID.String()},
		OccurredAt: time.Now().UTC(),
	}
	if err := s.channel.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("table", table).Msg("sync: publish failed")
	}
}
