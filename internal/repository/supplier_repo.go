package repository

import (
	"context"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SupplierRepository is the data access contract for supplier acquisitions.
type SupplierRepository interface {
	FindTransaction(ctx context.Context, id uuid.UUID) (*model.SupplierTransaction, error)
	FindItem(ctx context.Context, id uuid.UUID) (*model.SupplierTransactionItem, error)
	// UpdateItemTx writes back CreatedUnitIDs after the synchronizer creates
	// units, keeping later redeliveries idempotent.
	UpdateItemTx(tx *gorm.DB, item *model.SupplierTransactionItem) error
	DB() *gorm.DB
}

type supplierRepo struct{ db *gorm.DB }

func NewSupplierRepository(db *gorm.DB) SupplierRepository { return &supplierRepo{db: db} }

func (r *supplierRepo) FindTransaction(ctx context.Context, id uuid.UUID) (*model.SupplierTransaction, error) {
	var t model.SupplierTransaction
	err := r.db.WithContext(ctx).Preload("Items").First(&t, id).Error
	return &t, err
}

func (r *supplierRepo) FindItem(ctx context.Context, id uuid.UUID) (*model.SupplierTransactionItem, error) {
	var item model.SupplierTransactionItem
	err := r.db.WithContext(ctx).Preload("Transaction").First(&item, id).Error
	return &item, err
}

func (r *supplierRepo) UpdateItemTx(tx *gorm.DB, item *model.SupplierTransactionItem) error {
	return tx.Save(item).Error
}

func (r *supplierRepo) DB() *gorm.DB { return r.db }
