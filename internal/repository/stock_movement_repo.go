package repository

import (
	"context"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockMovementRepository records and aggregates the stock audit trail.
type StockMovementRepository interface {
	CreateTx(tx *gorm.DB, m *model.StockMovement) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error)
	// NetByProduct sums signed movement quantities per product in one grouped
	// query — the checker's ledger reconstruction for non-serialized stock.
	// Repair movements are excluded: they document counter overwrites, so
	// counting them would shift the net and re-create the mismatch they fixed.
	NetByProduct(ctx context.Context) (map[uuid.UUID]int, error)
}

type stockMovementRepo struct{ db *gorm.DB }

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db: db}
}

func (r *stockMovementRepo) CreateTx(tx *gorm.DB, m *model.StockMovement) error {
	return tx.Create(m).Error
}

func (r *stockMovementRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&movements).Error
	return movements, err
}

func (r *stockMovementRepo) NetByProduct(ctx context.Context) (map[uuid.UUID]int, error) {
	type row struct {
		ProductID uuid.UUID
		Net       int
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.StockMovement{}).
		Select("product_id, COALESCE(SUM(quantity), 0) AS net").
		Where("type <> ?", model.MovementRepair).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	nets := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		nets[r.ProductID] = r.Net
	}
	return nets, nil
}
