package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/model"
	"github.com/tipatpati/golden-phone-management-sub010/internal/notify"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ValidationErrors carries every problem found while validating a sale, so
// the caller sees them all at once instead of one per round trip.
type ValidationErrors []string

func (e ValidationErrors) Error() string {
	return "sale validation failed: " + strings.Join(e, "; ")
}

var ErrSaleNotEditable = errors.New("sale is not open")

// SaleService commits, edits, finalizes and cancels sales. Every write runs
// in one transaction: sale rows, unit statuses, the sold-unit projection,
// stock counters and movements commit or roll back together.
type SaleService interface {
	CommitSale(ctx context.Context, req dto.CommitSaleRequest) (*dto.SaleResponse, error)
	UpdateSaleItem(ctx context.Context, saleID, itemID uuid.UUID, req dto.UpdateSaleItemRequest) (*dto.SaleResponse, error)
	FinalizeSale(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error)
	CancelSale(ctx context.Context, saleID uuid.UUID) error
	GetSale(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error)
}

type saleService struct {
	products  repository.ProductRepository
	units     repository.UnitRepository
	sales     repository.SaleRepository
	soldUnits repository.SoldUnitRepository
	movements repository.StockMovementRepository
	stocks    StockQuery
	channel   notify.Channel
}

func NewSaleService(
	products repository.ProductRepository,
	units repository.UnitRepository,
	sales repository.SaleRepository,
	soldUnits repository.SoldUnitRepository,
	movements repository.StockMovementRepository,
	stocks StockQuery,
	channel notify.Channel,
) SaleService {
	return &saleService{
		products:  products,
		units:     units,
		sales:     sales,
		soldUnits: soldUnits,
		movements: movements,
		stocks:    stocks,
		channel:   channel,
	}
}

// resolvedLine is a request line joined with the catalog facts needed to
// validate and persist it.
type resolvedLine struct {
	req     dto.SaleLineRequest
	product *model.Product
	unit    *model.ProductUnit // serialized lines only
	price   decimal.Decimal
	stock   int
}

func (s *saleService) CommitSale(ctx context.Context, req dto.CommitSaleRequest) (*dto.SaleResponse, error) {
	lines, verrs, err := s.resolveLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	totals := ComputeTotals(toLedgerInput(lines, req))
	verrs = append(verrs, totals.Errors...)
	if len(verrs) > 0 {
		return nil, ValidationErrors(verrs)
	}

	var clientID *uuid.UUID
	if req.ClientID != nil {
		id, err := uuid.Parse(*req.ClientID)
		if err != nil {
			return nil, ValidationErrors{"client_id is not a valid uuid"}
		}
		clientID = &id
	}

	sale := &model.Sale{
		ClientID:       clientID,
		PaymentMethod:  req.PaymentMethod,
		VATIncluded:    req.VATIncluded,
		Subtotal:       totals.Subtotal,
		DiscountAmount: totals.DiscountAmount,
		TaxAmount:      totals.TaxAmount,
		Total:          totals.TotalAmount,
		Status:         model.SaleStatusOpen,
	}
	if req.Discount != nil {
		t := req.Discount.Type
		sale.DiscountType = &t
		sale.DiscountValue = req.Discount.Value
	}
	if req.Split != nil {
		sale.CashAmount = req.Split.Cash
		sale.CardAmount = req.Split.Card
		sale.BankTransferAmount = req.Split.BankTransfer
	}

	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		n, err := s.sales.NextNumberTx(tx)
		if err != nil {
			return fmt.Errorf("allocating sale number: %w", err)
		}
		sale.Number = n

		for _, l := range lines {
			qty := l.req.Quantity
			item := model.SaleItem{
				ProductID: l.product.ID,
				Quantity:  qty,
				UnitPrice: l.price,
				Subtotal:  l.price.Mul(decimal.NewFromInt(int64(qty))).Round(2),
			}
			if l.unit != nil {
				id := l.unit.ID
				item.UnitID = &id
				item.Serial = l.req.Serial
			}
			sale.Items = append(sale.Items, item)
		}
		if err := s.sales.CreateTx(tx, sale); err != nil {
			return fmt.Errorf("creating sale: %w", err)
		}

		now := time.Now().UTC()
		for i, l := range lines {
			item := sale.Items[i]
			if err := s.products.IncrementStockTx(tx, l.product.ID, -item.Quantity); err != nil {
				return fmt.Errorf("decrementing stock for %s: %w", l.product.DisplayName(), err)
			}
			ref := sale.ID
			mov := &model.StockMovement{
				ProductID:   l.product.ID,
				Type:        model.MovementSale,
				Quantity:    -item.Quantity,
				StockBefore: l.stock,
				StockAfter:  l.stock - item.Quantity,
				Reason:      fmt.Sprintf("sale #%d", sale.Number),
				ReferenceID: &ref,
			}
			if err := s.movements.CreateTx(tx, mov); err != nil {
				return fmt.Errorf("recording movement: %w", err)
			}
			if l.unit == nil {
				continue
			}
			if err := s.units.UpdateStatusTx(tx, l.unit.ID, model.UnitStatusSold); err != nil {
				return fmt.Errorf("marking unit %s sold: %w", l.unit.Serial, err)
			}
			record := &model.SoldProductUnit{
				SaleID:     sale.ID,
				SaleItemID: item.ID,
				ProductID:  l.product.ID,
				UnitID:     l.unit.ID,
				Serial:     l.unit.Serial,
				SoldPrice:  item.UnitPrice,
				SoldAt:     now,
			}
			if err := s.soldUnits.CreateTx(tx, record); err != nil {
				return fmt.Errorf("recording sold unit %s: %w", l.unit.Serial, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("number", sale.Number).
		Int("items", len(sale.Items)).
		Str("total", sale.Total.StringFixed(2)).
		Msg("sale: committed")
	s.publishSale(ctx, sale, notify.ActionInsert, lines)
	return s.toResponse(sale), nil
}

// resolveLines loads products and units for every request line and enforces
// the claim rules: a serialized line needs an existing available unit not
// already claimed by another open sale.
func (s *saleService) resolveLines(ctx context.Context, items []dto.SaleLineRequest) ([]resolvedLine, []string, error) {
	var verrs []string
	lines := make([]resolvedLine, 0, len(items))

	ids := make([]uuid.UUID, 0, len(items))
	for i, it := range items {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			verrs = append(verrs, fmt.Sprintf("item %d: product_id is not a valid uuid", i+1))
			continue
		}
		ids = append(ids, pid)
	}
	stocks, err := s.stocks.EffectiveStock(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("reading effective stock: %w", err)
	}

	claimed := map[string]bool{}
	for i, it := range items {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			continue // already reported above
		}
		product, err := s.products.FindByID(ctx, pid)
		if err != nil {
			verrs = append(verrs, fmt.Sprintf("item %d: product not found", i+1))
			continue
		}

		l := resolvedLine{req: it, product: product, stock: stocks[pid]}
		if it.UnitPrice != nil {
			l.price = *it.UnitPrice
		} else {
			l.price = product.BasePrice
		}

		if product.HasSerial {
			if it.Serial == nil || *it.Serial == "" {
				verrs = append(verrs, fmt.Sprintf("%s: serial is required", product.DisplayName()))
				continue
			}
			key := serialKey(pid, *it.Serial)
			if claimed[key] {
				verrs = append(verrs, fmt.Sprintf("%s: serial %s listed twice", product.DisplayName(), *it.Serial))
				continue
			}
			claimed[key] = true

			unit, err := s.units.FindByProductAndSerial(ctx, pid, *it.Serial)
			if err != nil {
				verrs = append(verrs, fmt.Sprintf("%s: serial %s not found", product.DisplayName(), *it.Serial))
				continue
			}
			if unit.Status != model.UnitStatusAvailable {
				verrs = append(verrs, fmt.Sprintf("%s: serial %s is %s", product.DisplayName(), *it.Serial, unit.Status))
				continue
			}
			if _, err := s.sales.FindOpenItemBySerial(ctx, pid, *it.Serial); err == nil {
				verrs = append(verrs, fmt.Sprintf("%s: serial %s is claimed by another open sale", product.DisplayName(), *it.Serial))
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, fmt.Errorf("checking open claims: %w", err)
			}
			l.unit = unit
			l.req.Quantity = 1
			if it.UnitPrice == nil {
				l.price = unit.SellPrice
			}
		}
		lines = append(lines, l)
	}
	return lines, verrs, nil
}

// UpdateSaleItem edits one line of a still-open sale and rewrites the
// sold-unit projection from the row's new state inside the same transaction.
func (s *saleService) UpdateSaleItem(ctx context.Context, saleID, itemID uuid.UUID, req dto.UpdateSaleItemRequest) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("loading sale: %w", err)
	}
	if sale.Status != model.SaleStatusOpen {
		return nil, ErrSaleNotEditable
	}

	var item *model.SaleItem
	for i := range sale.Items {
		if sale.Items[i].ID == itemID {
			item = &sale.Items[i]
			break
		}
	}
	if item == nil {
		return nil, gorm.ErrRecordNotFound
	}

	product, err := s.products.FindByID(ctx, item.ProductID)
	if err != nil {
		return nil, fmt.Errorf("loading product: %w", err)
	}

	serialChanged := product.HasSerial && req.Serial != nil &&
		(item.Serial == nil || *item.Serial != *req.Serial)

	var newUnit *model.ProductUnit
	if serialChanged {
		newUnit, err = s.units.FindByProductAndSerial(ctx, item.ProductID, *req.Serial)
		if err != nil {
			return nil, ValidationErrors{fmt.Sprintf("serial %s not found", *req.Serial)}
		}
		if newUnit.Status != model.UnitStatusAvailable {
			return nil, ValidationErrors{fmt.Sprintf("serial %s is %s", *req.Serial, newUnit.Status)}
		}
	}

	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if serialChanged {
			if item.UnitID != nil {
				if err := s.units.UpdateStatusTx(tx, *item.UnitID, model.UnitStatusAvailable); err != nil {
					return fmt.Errorf("releasing previous unit: %w", err)
				}
			}
			if err := s.soldUnits.DeleteBySaleItemTx(tx, item.ID); err != nil {
				return fmt.Errorf("deleting stale projection: %w", err)
			}
			id := newUnit.ID
			item.UnitID = &id
			item.Serial = req.Serial
			if err := s.units.UpdateStatusTx(tx, newUnit.ID, model.UnitStatusSold); err != nil {
				return fmt.Errorf("claiming unit %s: %w", newUnit.Serial, err)
			}
		}
		if req.UnitPrice != nil {
			item.UnitPrice = *req.UnitPrice
			item.Subtotal = req.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		}
		if err := s.sales.UpdateItemTx(tx, item); err != nil {
			return fmt.Errorf("updating sale item: %w", err)
		}
		if item.UnitID == nil {
			return nil
		}

		// The projection is always re-derived from the row as it stands now,
		// never patched field by field.
		if err := s.soldUnits.DeleteBySaleItemTx(tx, item.ID); err != nil {
			return fmt.Errorf("clearing projection: %w", err)
		}
		record := &model.SoldProductUnit{
			SaleID:     sale.ID,
			SaleItemID: item.ID,
			ProductID:  item.ProductID,
			UnitID:     *item.UnitID,
			Serial:     *item.Serial,
			SoldPrice:  item.UnitPrice,
			SoldAt:     time.Now().UTC(),
		}
		return s.soldUnits.CreateTx(tx, record)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.TableProductUnits, notify.ActionUpdate, item.ID, item.ProductID)
	return s.toResponse(sale), nil
}

func (s *saleService) FinalizeSale(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("loading sale: %w", err)
	}
	if sale.Status != model.SaleStatusOpen {
		return nil, ErrSaleNotEditable
	}
	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		return s.sales.UpdateStatusTx(tx, saleID, model.SaleStatusCompleted)
	})
	if err != nil {
		return nil, err
	}
	sale.Status = model.SaleStatusCompleted
	log.Info().Int("number", sale.Number).Msg("sale: finalized")
	return s.toResponse(sale), nil
}

// CancelSale reverses everything the commit applied: stock restored with
// reversal movements, units released, projections deleted. The sale row stays
// as cancelled history.
func (s *saleService) CancelSale(ctx context.Context, saleID uuid.UUID) error {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return fmt.Errorf("loading sale: %w", err)
	}
	if sale.Status == model.SaleStatusCancelled {
		return nil
	}

	stocks, err := s.stocks.EffectiveStock(ctx, saleProductIDs(sale))
	if err != nil {
		return fmt.Errorf("reading effective stock: %w", err)
	}

	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		for i := range sale.Items {
			item := &sale.Items[i]
			if err := s.products.IncrementStockTx(tx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restoring stock: %w", err)
			}
			ref := sale.ID
			mov := &model.StockMovement{
				ProductID:   item.ProductID,
				Type:        model.MovementSaleReversal,
				Quantity:    item.Quantity,
				StockBefore: stocks[item.ProductID],
				StockAfter:  stocks[item.ProductID] + item.Quantity,
				Reason:      fmt.Sprintf("sale #%d cancelled", sale.Number),
				ReferenceID: &ref,
			}
			if err := s.movements.CreateTx(tx, mov); err != nil {
				return fmt.Errorf("recording movement: %w", err)
			}
			if item.UnitID == nil {
				continue
			}
			if err := s.units.UpdateStatusTx(tx, *item.UnitID, model.UnitStatusAvailable); err != nil {
				return fmt.Errorf("releasing unit: %w", err)
			}
			if err := s.soldUnits.DeleteBySaleItemTx(tx, item.ID); err != nil {
				return fmt.Errorf("deleting projection: %w", err)
			}
		}
		return s.sales.UpdateStatusTx(tx, saleID, model.SaleStatusCancelled)
	})
	if err != nil {
		return err
	}

	log.Info().Int("number", sale.Number).Msg("sale: cancelled")
	for _, pid := range saleProductIDs(sale) {
		s.publish(ctx, notify.TableProducts, notify.ActionUpdate, pid, pid)
	}
	return nil
}

func (s *saleService) GetSale(ctx context.Context, saleID uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(sale), nil
}

func toLedgerInput(lines []resolvedLine, req dto.CommitSaleRequest) LedgerInput {
	in := LedgerInput{
		VATIncluded:   req.VATIncluded,
		Discount:      req.Discount,
		PaymentMethod: req.PaymentMethod,
		Split:         req.Split,
	}
	for _, l := range lines {
		in.Lines = append(in.Lines, LedgerLine{
			Description: l.product.DisplayName(),
			Quantity:    l.req.Quantity,
			UnitPrice:   l.price,
			HasSerial:   l.product.HasSerial,
			CachedStock: l.stock,
		})
	}
	return in
}

func saleProductIDs(sale *model.Sale) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, item := range sale.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

func (s *saleService) toResponse(sale *model.Sale) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:             sale.ID.String(),
		Number:         sale.Number,
		Subtotal:       sale.Subtotal,
		DiscountAmount: sale.DiscountAmount,
		TaxAmount:      sale.TaxAmount,
		Total:          sale.Total,
		Status:         sale.Status,
		CreatedAt:      sale.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, item := range sale.Items {
		line := dto.SaleLineResponse{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Serial:    item.Serial,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		}
		if item.Product != nil {
			line.Product = item.Product.DisplayName()
		}
		resp.Items = append(resp.Items, line)
	}
	return resp
}

func (s *saleService) publishSale(ctx context.Context, sale *model.Sale, action notify.Action, lines []resolvedLine) {
	for _, l := range lines {
		s.publish(ctx, notify.TableProducts, action, sale.ID, l.product.ID)
		if l.unit != nil {
			s.publish(ctx, notify.TableProductUnits, notify.ActionUpdate, l.unit.ID, l.product.ID)
		}
	}
}

func (s *saleService) publish(ctx context.Context, table string, action notify.Action, rowID, productID uuid.UUID) {
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
		log.Warn().Err(err).Str("table", table).Msg("sale: publish failed")
	}
}
