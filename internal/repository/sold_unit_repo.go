package repository

import (
	"context"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SoldUnitRepository persists the SaleItem → SoldProductUnit projection.
// Only the sale service writes through it; everything else reads.
type SoldUnitRepository interface {
	CreateTx(tx *gorm.DB, s *model.SoldProductUnit) error
	FindBySaleItem(ctx context.Context, saleItemID uuid.UUID) (*model.SoldProductUnit, error)
	ListAll(ctx context.Context) ([]model.SoldProductUnit, error)
	UpdateTx(tx *gorm.DB, s *model.SoldProductUnit) error
	DeleteBySaleItemTx(tx *gorm.DB, saleItemID uuid.UUID) error
}

type soldUnitRepo struct{ db *gorm.DB }

func NewSoldUnitRepository(db *gorm.DB) SoldUnitRepository { return &soldUnitRepo{db: db} }

func (r *soldUnitRepo) CreateTx(tx *gorm.DB, s *model.SoldProductUnit) error {
	return tx.Create(s).Error
}

func (r *soldUnitRepo) FindBySaleItem(ctx context.Context, saleItemID uuid.UUID) (*model.SoldProductUnit, error) {
	var s model.SoldProductUnit
	err := r.db.WithContext(ctx).Where("sale_item_id = ?", saleItemID).First(&s).Error
	return &s, err
}

func (r *soldUnitRepo) ListAll(ctx context.Context) ([]model.SoldProductUnit, error) {
	var records []model.SoldProductUnit
	err := r.db.WithContext(ctx).Find(&records).Error
	return records, err
}

func (r *soldUnitRepo) UpdateTx(tx *gorm.DB, s *model.SoldProductUnit) error {
	return tx.Save(s).Error
}

func (r *soldUnitRepo) DeleteBySaleItemTx(tx *gorm.DB, saleItemID uuid.UUID) error {
	return tx.Where("sale_item_id = ?", saleItemID).Delete(&model.SoldProductUnit{}).Error
}
