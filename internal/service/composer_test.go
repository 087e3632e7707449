package service

import (
	"context"
	"testing"
	"time"

	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/model"
	"github.com/tipatpati/golden-phone-management-sub010/internal/notify"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newComposerFixture() (*SaleComposer, *stubProductRepo, *stubUnitRepo) {
	products := newStubProductRepo()
	units := newStubUnitRepo()
	return NewSaleComposer(NewStockQuery(products, units)), products, units
}

func phoneLine(productID uuid.UUID, serial string) AddLineInput {
	return AddLineInput{
		ProductID: productID,
		Name:      "Apple iPhone 13",
		HasSerial: true,
		Serial:    serial,
		Quantity:  1,
		UnitPrice: d("599.00"),
		Stock:     3,
	}
}

func TestComposerDuplicateSerialIsSilentNoOp(t *testing.T) {
	c, _, _ := newComposerFixture()
	pid := uuid.New()

	st := c.AddItem(phoneLine(pid, "SN-1"))
	require.Len(t, st.Lines, 1)

	st = c.AddItem(phoneLine(pid, "SN-1"))
	assert.Len(t, st.Lines, 1, "duplicate serial must not add a line")
	assert.Equal(t, 1, st.Lines[0].Quantity)

	// A different serial of the same product is its own line.
	st = c.AddItem(phoneLine(pid, "SN-2"))
	assert.Len(t, st.Lines, 2)
}

func TestComposerSerializedQuantityForcedToOne(t *testing.T) {
	c, _, _ := newComposerFixture()
	in := phoneLine(uuid.New(), "SN-1")
	in.Quantity = 5

	st := c.AddItem(in)
	require.Len(t, st.Lines, 1)
	assert.Equal(t, 1, st.Lines[0].Quantity)
}

func TestComposerBulkLinesMergeByProduct(t *testing.T) {
	c, _, _ := newComposerFixture()
	pid := uuid.New()
	in := AddLineInput{ProductID: pid, Name: "USB cable", Quantity: 2, UnitPrice: d("5.00"), Stock: 50}

	st := c.AddItem(in)
	require.Len(t, st.Lines, 1)

	st = c.AddItem(in)
	require.Len(t, st.Lines, 1, "repeated bulk add merges")
	assert.Equal(t, 4, st.Lines[0].Quantity)
	assert.True(t, st.Lines[0].Subtotal.Equal(d("20.00")))
}

func TestComposerTotalsNeverStale(t *testing.T) {
	c, _, _ := newComposerFixture()
	pid := uuid.New()

	st := c.AddItem(AddLineInput{ProductID: pid, Name: "USB cable", Quantity: 1, UnitPrice: d("122.00"), Stock: 10})
	assert.True(t, st.Totals.TotalAmount.Equal(d("122.00")))

	st = c.UpdateForm(FormUpdate{Discount: &dto.DiscountSpec{Type: model.DiscountTypePercentage, Value: d("10")}})
	assert.True(t, st.Totals.TotalAmount.Equal(d("109.80")), "total = %s", st.Totals.TotalAmount)

	st = c.RemoveItem(pid, "")
	assert.Empty(t, st.Lines)
	assert.False(t, st.Totals.IsValid, "empty sale is invalid")
}

func TestComposerUpdateItemIgnoresQuantityOnSerialized(t *testing.T) {
	c, _, _ := newComposerFixture()
	c.AddItem(phoneLine(uuid.New(), "SN-1"))

	qty := 4
	price := d("550.00")
	st := c.UpdateItem(0, &qty, &price)
	assert.Equal(t, 1, st.Lines[0].Quantity)
	assert.True(t, st.Lines[0].UnitPrice.Equal(d("550.00")))
}

func TestComposerRefreshStockMergesWithoutInvalidating(t *testing.T) {
	c, products, _ := newComposerFixture()
	p := products.add(&model.Product{Brand: "Generic", Model: "USB cable", Stock: 10})

	st := c.AddItem(AddLineInput{ProductID: p.ID, Name: "USB cable", Quantity: 8, UnitPrice: d("5.00"), Stock: 10})
	require.True(t, st.Totals.IsValid)

	// Stock drops under the requested quantity; the line stays, validity flips.
	p.Stock = 5
	require.NoError(t, c.RefreshStock(context.Background(), []uuid.UUID{p.ID}))

	st = c.State()
	require.Len(t, st.Lines, 1)
	assert.Equal(t, 5, st.Lines[0].CachedStock)
	assert.False(t, st.Totals.IsValid)
}

func TestComposerWatchRefreshesOnEvents(t *testing.T) {
	c, products, _ := newComposerFixture()
	p := products.add(&model.Product{Brand: "Generic", Model: "USB cable", Stock: 10})

	c.AddItem(AddLineInput{ProductID: p.ID, Name: "USB cable", Quantity: 1, UnitPrice: d("5.00"), Stock: 10})

	ch := notify.NewMemoryChannel()
	stop, err := c.Watch(context.Background(), ch)
	require.NoError(t, err)
	defer stop()

	p.Stock = 2
	require.NoError(t, ch.Publish(context.Background(), notify.Event{
		Table:      notify.TableProducts,
		Action:     notify.ActionUpdate,
		RowID:      p.ID.String(),
		ProductIDs: []string{p.ID.String()},
		OccurredAt: time.Now(),
	}))

	require.Eventually(t, func() bool {
		return c.State().Lines[0].CachedStock == 2
	}, time.Second, 10*time.Millisecond)
}
