package service

import (
	"context"
	"sync"

	"github.com/tipatpati/golden-phone-management-sub010/internal/dto"
	"github.com/tipatpati/golden-phone-management-sub010/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ComposerLine is one line of an in-progress sale, denormalized with the
// product facts the calculator needs.
type ComposerLine struct {
	ProductID   uuid.UUID
	Name        string
	HasSerial   bool
	Serial      string // empty for bulk products
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
	CachedStock int
}

// ComposerState is the full reducer state: lines, form fields and the totals
// recomputed after every mutation. Totals are never stale relative to the
// action that produced them.
type ComposerState struct {
	Lines         []ComposerLine
	ClientID      *uuid.UUID
	PaymentMethod string
	VATIncluded   bool
	Discount      *dto.DiscountSpec
	Split         *dto.PaymentSplit
	Totals        Totals
}

// FormUpdate mutates the sale-level form fields. Nil fields are left as-is.
type FormUpdate struct {
	PaymentMethod *string
	VATIncluded   *bool
	Discount      *dto.DiscountSpec
	ClearDiscount bool
	Split         *dto.PaymentSplit
}

// AddLineInput carries the catalog facts resolved by the UI when a product is
// picked, plus the requested serial/quantity.
type AddLineInput struct {
	ProductID uuid.UUID
	Name      string
	HasSerial bool
	Serial    string
	Quantity  int
	UnitPrice decimal.Decimal
	Stock     int
}

// SaleComposer holds one in-progress sale. Each composer belongs to a single
// UI session (single writer); the mutex only covers the stock-refresh
// goroutine started by Watch merging into the cache.
type SaleComposer struct {
	mu     sync.Mutex
	stocks StockQuery
	state  ComposerState
}

func NewSaleComposer(stocks StockQuery) *SaleComposer {
	c := &SaleComposer{stocks: stocks}
	c.state.PaymentMethod = "cash"
	c.state.VATIncluded = true
	c.recompute()
	return c
}

// AddItem applies the merge rule: serialized lines are keyed by
// (product, serial) and a duplicate add is a silent no-op; bulk lines are
// keyed by product and a repeated add increments quantity. Serialized lines
// always get quantity 1 no matter what was requested.
func (c *SaleComposer) AddItem(in AddLineInput) ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.state.Lines {
		line := &c.state.Lines[i]
		if line.ProductID != in.ProductID {
			continue
		}
		if in.HasSerial {
			if line.Serial == in.Serial {
				return c.snapshot() // duplicate claim — rejected silently
			}
			continue // same product, different serial: separate line
		}
		line.Quantity += in.Quantity
		c.recompute()
		return c.snapshot()
	}

	qty := in.Quantity
	if in.HasSerial {
		qty = 1
	}
	c.state.Lines = append(c.state.Lines, ComposerLine{
		ProductID:   in.ProductID,
		Name:        in.Name,
		HasSerial:   in.HasSerial,
		Serial:      in.Serial,
		Quantity:    qty,
		UnitPrice:   in.UnitPrice,
		CachedStock: in.Stock,
	})
	c.recompute()
	return c.snapshot()
}

// UpdateItem changes quantity and/or unit price of the line at index i.
// Serialized lines ignore quantity changes.
func (c *SaleComposer) UpdateItem(i int, quantity *int, unitPrice *decimal.Decimal) ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.state.Lines) {
		return c.snapshot()
	}
	line := &c.state.Lines[i]
	if quantity != nil && !line.HasSerial {
		line.Quantity = *quantity
	}
	if unitPrice != nil {
		line.UnitPrice = *unitPrice
	}
	c.recompute()
	return c.snapshot()
}

// RemoveItem removes the line keyed by product (and serial, when serialized).
func (c *SaleComposer) RemoveItem(productID uuid.UUID, serial string) ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, line := range c.state.Lines {
		if line.ProductID == productID && line.Serial == serial {
			c.state.Lines = append(c.state.Lines[:i], c.state.Lines[i+1:]...)
			break
		}
	}
	c.recompute()
	return c.snapshot()
}

func (c *SaleComposer) UpdateForm(u FormUpdate) ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u.PaymentMethod != nil {
		c.state.PaymentMethod = *u.PaymentMethod
	}
	if u.VATIncluded != nil {
		c.state.VATIncluded = *u.VATIncluded
	}
	if u.ClearDiscount {
		c.state.Discount = nil
	} else if u.Discount != nil {
		c.state.Discount = u.Discount
	}
	if u.Split != nil {
		c.state.Split = u.Split
	}
	c.recompute()
	return c.snapshot()
}

func (c *SaleComposer) SetClient(id *uuid.UUID) ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.ClientID = id
	return c.snapshot()
}

// RefreshStock fetches fresh effective stock for the given products and
// merges it into the cached per-line values. It never invalidates lines —
// only their displayed availability (and the validity flag) changes.
func (c *SaleComposer) RefreshStock(ctx context.Context, ids []uuid.UUID) error {
	stocks, err := c.stocks.EffectiveStock(ctx, ids)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.state.Lines {
		if fresh, ok := stocks[c.state.Lines[i].ProductID]; ok {
			c.state.Lines[i].CachedStock = fresh
		}
	}
	c.recompute()
	return nil
}

func (c *SaleComposer) Reset() ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = ComposerState{PaymentMethod: "cash", VATIncluded: true}
	c.recompute()
	return c.snapshot()
}

func (c *SaleComposer) State() ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Watch subscribes the composer to product/unit change events and refreshes
// the stock cache for exactly the products named by each event. The returned
// stop function unsubscribes deterministically.
func (c *SaleComposer) Watch(ctx context.Context, ch notify.Channel) (stop func(), err error) {
	sub, err := ch.Subscribe(ctx, notify.TableProducts, notify.TableProductUnits)
	if err != nil {
		return nil, err
	}
	go func() {
		for e := range sub.Events() {
			ids := make([]uuid.UUID, 0, len(e.ProductIDs))
			for _, raw := range e.ProductIDs {
				if id, err := uuid.Parse(raw); err == nil {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				continue
			}
			if err := c.RefreshStock(ctx, ids); err != nil {
				log.Warn().Err(err).Msg("composer: stock refresh failed")
			}
		}
	}()
	return func() { _ = sub.Close() }, nil
}

// recompute re-invokes the ledger calculator; must be called under mu by
// every mutating action.
func (c *SaleComposer) recompute() {
	lines := make([]LedgerLine, len(c.state.Lines))
	for i, l := range c.state.Lines {
		lines[i] = LedgerLine{
			Description: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			HasSerial:   l.HasSerial,
			CachedStock: l.CachedStock,
		}
	}
	c.state.Totals = ComputeTotals(LedgerInput{
		Lines:         lines,
		VATIncluded:   c.state.VATIncluded,
		Discount:      c.state.Discount,
		PaymentMethod: c.state.PaymentMethod,
		Split:         c.state.Split,
	})
	for i := range c.state.Lines {
		l := &c.state.Lines[i]
		l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
	}
}

// snapshot copies the state so callers never alias internal slices.
func (c *SaleComposer) snapshot() ComposerState {
	out := c.state
	out.Lines = make([]ComposerLine, len(c.state.Lines))
	copy(out.Lines, c.state.Lines)
	return out
}
