package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/model"
	"github.com/tipatpati/golden-phone-management-sub010/internal/notify"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saleFixture struct {
	products  *stubProductRepo
	units     *stubUnitRepo
	sales     *stubSaleRepo
	soldUnits *stubSoldUnitRepo
	movements *stubMovementRepo
	svc       SaleService
}

func newSaleFixture() *saleFixture {
	f := &saleFixture{
		products:  newStubProductRepo(),
		units:     newStubUnitRepo(),
		sales:     newStubSaleRepo(),
		soldUnits: newStubSoldUnitRepo(),
		movements: newStubMovementRepo(),
	}
	stocks := NewStockQuery(f.products, f.units)
	f.svc = NewSaleService(f.products, f.units, f.sales, f.soldUnits, f.movements, stocks, notify.NewMemoryChannel())
	return f
}

func (f *saleFixture) phone() (*model.Product, *model.ProductUnit) {
	p := f.products.add(&model.Product{
		Brand: "Apple", Model: "iPhone 13", HasSerial: true, Active: true,
		BasePrice: d("599.00"), Stock: 1,
	})
	u := f.units.add(&model.ProductUnit{
		ProductID: p.ID, Serial: "SN-1", Status: model.UnitStatusAvailable,
		SellPrice: d("599.00"),
	})
	return p, u
}

func (f *saleFixture) cable(stock int) *model.Product {
	return f.products.add(&model.Product{
		Brand: "Generic", Model: "USB cable", Active: true,
		BasePrice: d("5.00"), Stock: stock,
	})
}

func strptr(s string) *string { return &s }

func TestCommitSaleSerialized(t *testing.T) {
	f := newSaleFixture()
	p, u := f.phone()

	resp, err := f.svc.CommitSale(context.Background(), dto.CommitSaleRequest{
		PaymentMethod: model.PaymentCash,
		VATIncluded:   true,
		Items: []dto.SaleLineRequest{
			{ProductID: p.ID.String(), Serial: strptr("SN-1"), Quantity: 3}, // qty forced to 1
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Items[0].Quantity)
	assert.Equal(t, model.SaleStatusOpen, resp.Status)
	assert.Equal(t, 1, resp.Number)

	// Unit claimed, projection written, stock and ledger updated.
	unit, _ := f.units.FindByID(context.Background(), u.ID)
	assert.Equal(t, model.UnitStatusSold, unit.Status)

	records, _ := f.soldUnits.ListAll(context.Background())
	require.Len(t, records, 1)
	assert.Equal(t, "SN-1", records[0].Serial)
	assert.True(t, records[0].SoldPrice.Equal(d("599.00")))

	product, _ := f.products.FindByID(context.Background(), p.ID)
	assert.Equal(t, 0, product.Stock)

	movements, _ := f.movements.ListByProduct(context.Background(), p.ID)
	require.Len(t, movements, 1)
	assert.Equal(t, model.MovementSale, movements[0].Type)
	assert.Equal(t, -1, movements[0].Quantity)
}

func TestCommitSaleRejectsUnavailableSerial(t *testing.T) {
	f := newSaleFixture()
	p, u := f.phone()
	u.Status = model.UnitStatusSold

	_, err := f.svc.CommitSale(context.Background(), dto.CommitSaleRequest{
		PaymentMethod: model.PaymentCash,
		VATIncluded:   true,
		Items: []dto.SaleLineRequest{
			{ProductID: p.ID.String(), Serial: strptr("SN-1"), Quantity: 1},
		},
	})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs[0], "sold")
}

func TestCommitSaleRejectsSerialClaimedByOpenSale(t *testing.T) {
	f := newSaleFixture()
	p, _ := f.phone()
	req := dto.CommitSaleRequest{
		PaymentMethod: model.PaymentCash,
		VATIncluded:   true,
		Items: []dto.SaleLineRequest{
			{ProductID: p.ID.String(), Serial: strptr("SN-1"), Quantity: 1},
		},
	}

	_, err := f.svc.CommitSale(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.CommitSale(context.Background(), req)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestCommitSaleReportsAllProblemsAtOnce(t *testing.T) {
	f := newSaleFixture()
	p, _ := f.phone()
	cable := f.cable(2)

	_, err := f.svc.CommitSale(context.Background(), dto.CommitSaleRequest{
		PaymentMethod: model.PaymentCash,
		VATIncluded:   true,
		Items: []dto.SaleLineRequest{
			{ProductID: p.ID.String(), Quantity: 1},                          // missing serial
			{ProductID: cable.ID.String(), Quantity: 5},                      // exceeds stock 2
			{ProductID: uuid.NewString(), Serial: strptr("X"), Quantity: 1},  // unknown product
		},
	})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 3)
}

func TestCommitSaleNothingPersistedOnValidationFailure(t *testing.T) {
	f := newSaleFixture()
	p, u := f.phone()

	_, err := f.svc.CommitSale(context.Background(), dto.CommitSaleRequest{
		PaymentMethod: model.PaymentHybrid, // split missing → invalid totals
		VATIncluded:   true,
		Items: []dto.SaleLineRequest{
			{ProductID: p.ID.String(), Serial: strptr("SN-1"), Quantity: 1},
		},
	})
	require.Error(t, err)

	unit, _ := f.units.FindByID(context.Background(), u.ID)
	assert.Equal(t, model.UnitStatusAvailable, unit.Status)
	product, _ := f.products.FindByID(context.Background(), p.ID)
	assert.Equal(t, 1, product.Stock)
	assert.Empty(t, f.movements.movements)
}

func TestUpdateSaleItemRewritesProjection(t *testing.T) {
	f := newSaleFixture()
	p, u1 := f.phone()
	u2 := f.units.add(&model.ProductUnit{
		ProductID: p.ID, Serial: "SN-2", Status: model.UnitStatusAvailable,
		SellPrice: d("599.00"),
	})

	resp, err := f.svc.CommitSale(context.Background(), dto.CommitSaleRequest{
		PaymentMethod: model.PaymentCash,
		VATIncluded:   true,
		Items: []dto.SaleLineRequest{
			{ProductID: p.ID.String(), Serial: strptr("SN-1"), Quantity: 1},
		},
	})
	require.NoError(t, err)
	saleID := uuid.MustParse(resp.ID)
	itemID := uuid.MustParse(resp.Items[0].ID)

	newPrice := d("550.00")
	_, err = f.svc.UpdateSaleItem(context.Background(), saleID, itemID, dto.UpdateSaleItemRequest{
		Serial:    strptr("SN-2"),
		UnitPrice: &newPrice,
	})
	require.NoError(t, err)

	// Old unit released, new unit claimed.
	got1, _ := f.units.FindByID(context.Background(), u1.ID)
	assert.Equal(t, model.UnitStatusAvailable, got1.Status)
	got2, _ := f.units.FindByID(context.Background(), u2.ID)
	assert.Equal(t, model.UnitStatusSold, got2.Status)

	// Projection re-derived from the updated row: exactly one record.
	records, _ := f.soldUnits.ListAll(context.Background())
	require.Len(t, records, 1)
	assert.Equal(t, "SN-2", records[0].Serial)
	assert.Equal(t, u2.ID, records[0].UnitID)
	assert.True(t, records[0].SoldPrice.Equal(d("550.00")))
}

func TestUpdateSaleItemRejectedWhenNotOpen(t *testing.T) {
	f := newSaleFixture()
	p, _ := f.phone()

	resp, err := f.svc.CommitSale(context.Background(), dto.CommitSaleRequest{
		PaymentMethod: model.PaymentCash,
		VATIncluded:   true,
		Items: []dto.SaleLineRequest{
			{ProductID: p.ID.String(), Serial: strptr("SN-1"), Quantity: 1},
		},
	})
	require.NoError(t, err)
	saleID := uuid.MustParse(resp.ID)

	_, err = f.svc.FinalizeSale(context.Background(), saleID)
	require.NoError(t, err)

	price := d("1.00")
	_, err = f.svc.UpdateSaleItem(context.Background(), saleID, uuid.MustParse(resp.Items[0].ID),
		dto.UpdateSaleItemRequest{UnitPrice: &price})
	assert.True(t, errors.Is(err, ErrSaleNotEditable))
}

func TestCancelSaleReversesEverything(t *testing.T) {
	f := newSaleFixture()
	p, u := f.phone()
	cable := f.cable(10)

	resp, err := f.svc.CommitSale(context.Background(), dto.CommitSaleRequest{
		PaymentMethod: model.PaymentCash,
		VATIncluded:   true,
		Items: []dto.SaleLineRequest{
			{ProductID: p.ID.String(), Serial: strptr("SN-1"), Quantity: 1},
			{ProductID: cable.ID.String(), Quantity: 4},
		},
	})
	require.NoError(t, err)
	saleID := uuid.MustParse(resp.ID)

	require.NoError(t, f.svc.CancelSale(context.Background(), saleID))

	unit, _ := f.units.FindByID(context.Background(), u.ID)
	assert.Equal(t, model.UnitStatusAvailable, unit.Status)

	records, _ := f.soldUnits.ListAll(context.Background())
	assert.Empty(t, records)

	phoneProduct, _ := f.products.FindByID(context.Background(), p.ID)
	assert.Equal(t, 1, phoneProduct.Stock)
	cableProduct, _ := f.products.FindByID(context.Background(), cable.ID)
	assert.Equal(t, 10, cableProduct.Stock)

	sale, err := f.svc.GetSale(context.Background(), saleID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleStatusCancelled, sale.Status)

	// Cancelling again is a no-op.
	require.NoError(t, f.svc.CancelSale(context.Background(), saleID))
	cableProduct, _ = f.products.FindByID(context.Background(), cable.ID)
	assert.Equal(t, 10, cableProduct.Stock)
}

func TestCommitSaleBulkUsesEffectiveStock(t *testing.T) {
	f := newSaleFixture()
	cable := f.cable(3)

	resp, err := f.svc.CommitSale(context.Background(), dto.CommitSaleRequest{
		PaymentMethod: model.PaymentCash,
		VATIncluded:   true,
		Items: []dto.SaleLineRequest{
			{ProductID: cable.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Total.Equal(d("15.00")), "total = %s", resp.Total)

	got, _ := f.products.FindByID(context.Background(), cable.ID)
	assert.Equal(t, 0, got.Stock)
}
