package repository

import (
	"context"
	"errors"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockEntryRepository maintains the synchronizer's idempotency ledger.
type StockEntryRepository interface {
	FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) (*model.StockEntry, error)
	SaveTx(tx *gorm.DB, e *model.StockEntry) error
	DeleteBySourceTx(tx *gorm.DB, sourceType string, sourceID uuid.UUID) error
}

// ErrEntryNotFound is returned when no ledger row exists for a source yet.
var ErrEntryNotFound = errors.New("stock entry not found")

type stockEntryRepo struct{ db *gorm.DB }

func NewStockEntryRepository(db *gorm.DB) StockEntryRepository { return &stockEntryRepo{db: db} }

func (r *stockEntryRepo) FindBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) (*model.StockEntry, error) {
	var e model.StockEntry
	err := r.db.WithContext(ctx).
		Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	return &e, err
}

func (r *stockEntryRepo) SaveTx(tx *gorm.DB, e *model.StockEntry) error {
	return tx.Save(e).Error
}

func (r *stockEntryRepo) DeleteBySourceTx(tx *gorm.DB, sourceType string, sourceID uuid.UUID) error {
	return tx.Where("source_type = ? AND source_id = ?", sourceType, sourceID).
		Delete(&model.StockEntry{}).Error
}
