package service

// In-memory repository stubs shared by the service tests. They return
// gorm.ErrRecordNotFound like the real implementations so the services'
// error handling is exercised unchanged.

import (
	"context"
	"sort"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── Products ──────────────────────────────────────────────────────────────────

type stubProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) add(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return p
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.add(p)
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Product, error) {
	var out []model.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) ListAll(_ context.Context) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *stubProductRepo) IncrementStockTx(_ *gorm.DB, id uuid.UUID, delta int) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Stock += delta
	return nil
}

func (r *stubProductRepo) SetStock(_ context.Context, id uuid.UUID, value int) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Stock = value
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── Units ─────────────────────────────────────────────────────────────────────

type stubUnitRepo struct {
	units map[uuid.UUID]*model.ProductUnit
}

func newStubUnitRepo() *stubUnitRepo {
	return &stubUnitRepo{units: make(map[uuid.UUID]*model.ProductUnit)}
}

func (r *stubUnitRepo) add(u *model.ProductUnit) *model.ProductUnit {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.units[u.ID] = u
	return u
}

func (r *stubUnitRepo) CreateTx(_ *gorm.DB, u *model.ProductUnit) error {
	r.add(u)
	return nil
}

func (r *stubUnitRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductUnit, error) {
	u, ok := r.units[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUnitRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.ProductUnit, error) {
	var out []model.ProductUnit
	for _, id := range ids {
		if u, ok := r.units[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUnitRepo) FindByProductAndSerial(_ context.Context, productID uuid.UUID, serial string) (*model.ProductUnit, error) {
	for _, u := range r.units {
		if u.ProductID == productID && u.Serial == serial {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUnitRepo) ListAll(_ context.Context) ([]model.ProductUnit, error) {
	var out []model.ProductUnit
	for _, u := range r.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Serial < out[j].Serial })
	return out, nil
}

func (r *stubUnitRepo) CountAvailableByProduct(_ context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int)
	wanted := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	for _, u := range r.units {
		if wanted[u.ProductID] && u.Status == model.UnitStatusAvailable {
			counts[u.ProductID]++
		}
	}
	return counts, nil
}

func (r *stubUnitRepo) UpdateTx(_ *gorm.DB, u *model.ProductUnit) error {
	if _, ok := r.units[u.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *u
	r.units[u.ID] = &cp
	return nil
}

func (r *stubUnitRepo) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, status string) error {
	u, ok := r.units[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Status = status
	return nil
}

func (r *stubUnitRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.units, id)
	return nil
}

var _ repository.UnitRepository = (*stubUnitRepo)(nil)

// ── Sales ─────────────────────────────────────────────────────────────────────

type stubSaleRepo struct {
	sales   map[uuid.UUID]*model.Sale
	numbers int
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{sales: make(map[uuid.UUID]*model.Sale)}
}

func (r *stubSaleRepo) add(s *model.Sale) *model.Sale {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range s.Items {
		if s.Items[i].ID == uuid.Nil {
			s.Items[i].ID = uuid.New()
		}
		s.Items[i].SaleID = s.ID
	}
	r.sales[s.ID] = s
	return s
}

func (r *stubSaleRepo) CreateTx(_ *gorm.DB, s *model.Sale) error {
	r.add(s)
	return nil
}

func (r *stubSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSaleRepo) FindItemByID(_ context.Context, id uuid.UUID) (*model.SaleItem, error) {
	for _, s := range r.sales {
		for i := range s.Items {
			if s.Items[i].ID == id {
				item := s.Items[i]
				item.Sale = s
				return &item, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubSaleRepo) ListItems(_ context.Context) ([]model.SaleItem, error) {
	var out []model.SaleItem
	for _, s := range r.sales {
		if s.Status == model.SaleStatusCancelled {
			continue
		}
		for i := range s.Items {
			item := s.Items[i]
			item.Sale = s
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *stubSaleRepo) FindOpenItemBySerial(_ context.Context, productID uuid.UUID, serial string) (*model.SaleItem, error) {
	for _, s := range r.sales {
		if s.Status != model.SaleStatusOpen {
			continue
		}
		for i := range s.Items {
			item := s.Items[i]
			if item.ProductID == productID && item.Serial != nil && *item.Serial == serial {
				item.Sale = s
				return &item, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubSaleRepo) UpdateItemTx(_ *gorm.DB, updated *model.SaleItem) error {
	for _, s := range r.sales {
		for i := range s.Items {
			if s.Items[i].ID == updated.ID {
				cp := *updated
				cp.Sale = nil
				s.Items[i] = cp
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubSaleRepo) FlagItemForReview(_ context.Context, itemID uuid.UUID) error {
	for _, s := range r.sales {
		for i := range s.Items {
			if s.Items[i].ID == itemID {
				s.Items[i].NeedsReview = true
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubSaleRepo) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, status string) error {
	s, ok := r.sales[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = status
	return nil
}

func (r *stubSaleRepo) NextNumberTx(_ *gorm.DB) (int, error) {
	r.numbers++
	return r.numbers, nil
}

func (r *stubSaleRepo) DB() *gorm.DB { return nil }

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

// ── Sold units ────────────────────────────────────────────────────────────────

type stubSoldUnitRepo struct {
	records map[uuid.UUID]*model.SoldProductUnit // keyed by SaleItemID
}

func newStubSoldUnitRepo() *stubSoldUnitRepo {
	return &stubSoldUnitRepo{records: make(map[uuid.UUID]*model.SoldProductUnit)}
}

func (r *stubSoldUnitRepo) CreateTx(_ *gorm.DB, s *model.SoldProductUnit) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.records[s.SaleItemID] = s
	return nil
}

func (r *stubSoldUnitRepo) FindBySaleItem(_ context.Context, saleItemID uuid.UUID) (*model.SoldProductUnit, error) {
	s, ok := r.records[saleItemID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSoldUnitRepo) ListAll(_ context.Context) ([]model.SoldProductUnit, error) {
	var out []model.SoldProductUnit
	for _, s := range r.records {
		out = append(out, *s)
	}
	return out, nil
}

func (r *stubSoldUnitRepo) UpdateTx(_ *gorm.DB, s *model.SoldProductUnit) error {
	r.records[s.SaleItemID] = s
	return nil
}

func (r *stubSoldUnitRepo) DeleteBySaleItemTx(_ *gorm.DB, saleItemID uuid.UUID) error {
	delete(r.records, saleItemID)
	return nil
}

var _ repository.SoldUnitRepository = (*stubSoldUnitRepo)(nil)

// ── Suppliers ─────────────────────────────────────────────────────────────────

type stubSupplierRepo struct {
	txns  map[uuid.UUID]*model.SupplierTransaction
	items map[uuid.UUID]*model.SupplierTransactionItem
}

func newStubSupplierRepo() *stubSupplierRepo {
	return &stubSupplierRepo{
		txns:  make(map[uuid.UUID]*model.SupplierTransaction),
		items: make(map[uuid.UUID]*model.SupplierTransactionItem),
	}
}

func (r *stubSupplierRepo) addTxn(t *model.SupplierTransaction) *model.SupplierTransaction {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	for i := range t.Items {
		item := &t.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.TransactionID = t.ID
		r.items[item.ID] = item
	}
	r.txns[t.ID] = t
	return t
}

func (r *stubSupplierRepo) FindTransaction(_ context.Context, id uuid.UUID) (*model.SupplierTransaction, error) {
	t, ok := r.txns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *stubSupplierRepo) FindItem(_ context.Context, id uuid.UUID) (*model.SupplierTransactionItem, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	item.Transaction = r.txns[item.TransactionID]
	return item, nil
}

func (r *stubSupplierRepo) UpdateItemTx(_ *gorm.DB, item *model.SupplierTransactionItem) error {
	r.items[item.ID] = item
	if t, ok := r.txns[item.TransactionID]; ok {
		for i := range t.Items {
			if t.Items[i].ID == item.ID {
				t.Items[i] = *item
			}
		}
	}
	return nil
}

func (r *stubSupplierRepo) DB() *gorm.DB { return nil }

var _ repository.SupplierRepository = (*stubSupplierRepo)(nil)

// ── Stock entries ─────────────────────────────────────────────────────────────

type stubStockEntryRepo struct {
	entries map[string]*model.StockEntry
}

func newStubStockEntryRepo() *stubStockEntryRepo {
	return &stubStockEntryRepo{entries: make(map[string]*model.StockEntry)}
}

func entryKey(sourceType string, sourceID uuid.UUID) string {
	return sourceType + "/" + sourceID.String()
}

func (r *stubStockEntryRepo) FindBySource(_ context.Context, sourceType string, sourceID uuid.UUID) (*model.StockEntry, error) {
	e, ok := r.entries[entryKey(sourceType, sourceID)]
	if !ok {
		return nil, repository.ErrEntryNotFound
	}
	return e, nil
}

func (r *stubStockEntryRepo) SaveTx(_ *gorm.DB, e *model.StockEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.entries[entryKey(e.SourceType, e.SourceID)] = e
	return nil
}

func (r *stubStockEntryRepo) DeleteBySourceTx(_ *gorm.DB, sourceType string, sourceID uuid.UUID) error {
	delete(r.entries, entryKey(sourceType, sourceID))
	return nil
}

var _ repository.StockEntryRepository = (*stubStockEntryRepo)(nil)

// ── Stock movements ───────────────────────────────────────────────────────────

type stubMovementRepo struct {
	movements []model.StockMovement
}

func newStubMovementRepo() *stubMovementRepo { return &stubMovementRepo{} }

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movements = append(r.movements, *m)
	return nil
}

func (r *stubMovementRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.StockMovement, error) {
	var out []model.StockMovement
	for _, m := range r.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubMovementRepo) NetByProduct(_ context.Context) (map[uuid.UUID]int, error) {
	nets := make(map[uuid.UUID]int)
	for _, m := range r.movements {
		if m.Type == model.MovementRepair {
			continue
		}
		nets[m.ProductID] += m.Quantity
	}
	return nets, nil
}

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)
