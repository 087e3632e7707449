package repository

import (
	"context"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleRepository is the data access contract for sales and sale lines.
type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	FindItemByID(ctx context.Context, id uuid.UUID) (*model.SaleItem, error)

	// ListItems returns all lines of non-cancelled sales, Sale preloaded.
	// Integrity scans iterate this set.
	ListItems(ctx context.Context) ([]model.SaleItem, error)

	// FindOpenItemBySerial resolves the at-most-one-claim-in-flight rule:
	// it returns a line of an open sale claiming (product, serial), if any.
	FindOpenItemBySerial(ctx context.Context, productID uuid.UUID, serial string) (*model.SaleItem, error)

	UpdateItemTx(tx *gorm.DB, item *model.SaleItem) error
	FlagItemForReview(ctx context.Context, itemID uuid.UUID) error
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error
	NextNumberTx(tx *gorm.DB) (int, error)
	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).Preload("Items").First(&s, id).Error
	return &s, err
}

func (r *saleRepo) FindItemByID(ctx context.Context, id uuid.UUID) (*model.SaleItem, error) {
	var item model.SaleItem
	err := r.db.WithContext(ctx).Preload("Sale").First(&item, id).Error
	return &item, err
}

func (r *saleRepo) ListItems(ctx context.Context) ([]model.SaleItem, error) {
	var items []model.SaleItem
	err := r.db.WithContext(ctx).Preload("Sale").
		Joins("JOIN sales ON sales.id = sale_items.sale_id AND sales.status <> ?", model.SaleStatusCancelled).
		Find(&items).Error
	return items, err
}

func (r *saleRepo) FindOpenItemBySerial(ctx context.Context, productID uuid.UUID, serial string) (*model.SaleItem, error) {
	var item model.SaleItem
	err := r.db.WithContext(ctx).
		Joins("JOIN sales ON sales.id = sale_items.sale_id AND sales.status = ?", model.SaleStatusOpen).
		Where("sale_items.product_id = ? AND sale_items.serial = ?", productID, serial).
		First(&item).Error
	return &item, err
}

func (r *saleRepo) UpdateItemTx(tx *gorm.DB, item *model.SaleItem) error {
	return tx.Save(item).Error
}

func (r *saleRepo) FlagItemForReview(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.SaleItem{}).Where("id = ?", itemID).
		Update("needs_review", true).Error
}

func (r *saleRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error {
	return tx.Model(&model.Sale{}).Where("id = ?", id).Update("status", status).Error
}

// NextNumberTx allocates the next sale number from a dedicated sequence so
// that concurrent commits never collide.
func (r *saleRepo) NextNumberTx(tx *gorm.DB) (int, error) {
	var n int
	err := tx.Raw("SELECT nextval('sale_number_seq')").Scan(&n).Error
	return n, err
}

func (r *saleRepo) DB() *gorm.DB { return r.db }
