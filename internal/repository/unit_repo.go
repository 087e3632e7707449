package repository

import (
	"context"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnitRepository is the data access contract for serialized product units.
type UnitRepository interface {
	CreateTx(tx *gorm.DB, u *model.ProductUnit) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductUnit, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ProductUnit, error)
	FindByProductAndSerial(ctx context.Context, productID uuid.UUID, serial string) (*model.ProductUnit, error)
	ListAll(ctx context.Context) ([]model.ProductUnit, error)

	// CountAvailableByProduct returns available-unit counts for a set of
	// products in one grouped query. Products with no available units are
	// absent from the map.
	CountAvailableByProduct(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error)

	UpdateTx(tx *gorm.DB, u *model.ProductUnit) error
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type unitRepo struct{ db *gorm.DB }

func NewUnitRepository(db *gorm.DB) UnitRepository { return &unitRepo{db: db} }

func (r *unitRepo) CreateTx(tx *gorm.DB, u *model.ProductUnit) error {
	return tx.Create(u).Error
}

func (r *unitRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductUnit, error) {
	var u model.ProductUnit
	err := r.db.WithContext(ctx).First(&u, id).Error
	return &u, err
}

func (r *unitRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.ProductUnit, error) {
	var units []model.ProductUnit
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&units).Error
	return units, err
}

func (r *unitRepo) FindByProductAndSerial(ctx context.Context, productID uuid.UUID, serial string) (*model.ProductUnit, error) {
	var u model.ProductUnit
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND serial = ?", productID, serial).
		First(&u).Error
	return &u, err
}

func (r *unitRepo) ListAll(ctx context.Context) ([]model.ProductUnit, error) {
	var units []model.ProductUnit
	err := r.db.WithContext(ctx).Find(&units).Error
	return units, err
}

func (r *unitRepo) CountAvailableByProduct(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	type row struct {
		ProductID uuid.UUID
		N         int
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.ProductUnit{}).
		Select("product_id, COUNT(*) AS n").
		Where("product_id IN ? AND status = ?", productIDs, model.UnitStatusAvailable).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(rows))
	for _, r := range rows {
		counts[r.ProductID] = r.N
	}
	return counts, nil
}

func (r *unitRepo) UpdateTx(tx *gorm.DB, u *model.ProductUnit) error {
	return tx.Save(u).Error
}

func (r *unitRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error {
	return tx.Model(&model.ProductUnit{}).Where("id = ?", id).
		Update("status", status).Error
}

func (r *unitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ProductUnit{}, id).Error
}
