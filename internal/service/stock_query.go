package service

import (
	"context"

	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"

	"github.com/google/uuid"
)

// StockQuery reads effective stock for a set of products in a constant number
// of round trips. It runs on every relevant real-time event, so per-id reads
// are not an option.
type StockQuery interface {
	EffectiveStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
	EffectiveStockRows(ctx context.Context, ids []uuid.UUID) ([]dto.EffectiveStock, error)
}

type stockQuery struct {
	products repository.ProductRepository
	units    repository.UnitRepository
}

func NewStockQuery(products repository.ProductRepository, units repository.UnitRepository) StockQuery {
	return &stockQuery{products: products, units: units}
}

// EffectiveStock returns, per product: count of available units when
// serialized, the stored counter otherwise. Exactly two batched queries
// regardless of input size.
func (s *stockQuery) EffectiveStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]int{}, nil
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var serialized []uuid.UUID
	for _, p := range products {
		if p.HasSerial {
			serialized = append(serialized, p.ID)
		}
	}
	counts := map[uuid.UUID]int{}
	if len(serialized) > 0 {
		counts, err = s.units.CountAvailableByProduct(ctx, serialized)
		if err != nil {
			return nil, err
		}
	}

	stocks := make(map[uuid.UUID]int, len(products))
	for _, p := range products {
		if p.HasSerial {
			stocks[p.ID] = counts[p.ID]
		} else {
			stocks[p.ID] = p.Stock
		}
	}
	return stocks, nil
}

func (s *stockQuery) EffectiveStockRows(ctx context.Context, ids []uuid.UUID) ([]dto.EffectiveStock, error) {
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	stocks, err := s.EffectiveStock(ctx, ids)
	if err != nil {
		return nil, err
	}
	rows := make([]dto.EffectiveStock, 0, len(products))
	for _, p := range products {
		rows = append(rows, dto.EffectiveStock{
			ProductID: p.ID.String(),
			HasSerial: p.HasSerial,
			Stock:     stocks[p.ID],
		})
	}
	return rows, nil
}
