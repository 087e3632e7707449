package repository

import (
	"context"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository defines the data access contract for catalog products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via in-memory stubs.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	// FindByIDs is a single batched read (WHERE id IN ...) — invoked on every
	// stock-refresh event, so round trips must stay constant.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error)
	ListAll(ctx context.Context) ([]model.Product, error)

	// IncrementStockTx applies a signed delta in one atomic statement.
	// Every write path (sales, sync, repair) goes through this — never a
	// read-modify-write across round trips, or concurrent sales and
	// acquisitions lose updates.
	IncrementStockTx(tx *gorm.DB, id uuid.UUID, delta int) error

	// SetStock overwrites the counter. Only the repair engine uses it.
	SetStock(ctx context.Context, id uuid.UUID, value int) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *productRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *productRepo) ListAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("brand ASC, model ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) IncrementStockTx(tx *gorm.DB, id uuid.UUID, delta int) error {
	return tx.Model(&model.Product{}).Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", delta)).Error
}

func (r *productRepo) SetStock(ctx context.Context, id uuid.UUID, value int) error {
	return r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", id).
		Update("stock", value).Error
}

func (r *productRepo) DB() *gorm.DB { return r.db }
