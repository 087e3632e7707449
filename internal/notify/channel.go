// Package notify abstracts the row-change notification channel the engine
// publishes to and subscribes from. Delivery is at-least-once; ordering is
// guaranteed only between successive updates to the same row, which is why
// every consumer re-reads current state instead of trusting the payload.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Tables the engine publishes changes for.
const (
	TableProducts         = "products"
	TableProductUnits     = "product_units"
	TableSupplierTxns     = "supplier_transactions"
	TableSupplierTxnItems = "supplier_transaction_items"
)

// Event is one row-change notification. Old carries the pre-image on UPDATE
// and DELETE; New carries the post-image on INSERT and UPDATE. ProductIDs
// lets listeners refresh stock caches without decoding the row payloads.
type Event struct {
	Table      string          `json:"table"`
	Action     Action          `json:"action"`
	RowID      string          `json:"row_id"`
	ProductIDs []string        `json:"product_ids,omitempty"`
	Old        json.RawMessage `json:"old,omitempty"`
	New        json.RawMessage `json:"new,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Subscription is a live feed of events for the subscribed tables. Close
// deterministically unsubscribes and closes the Events channel.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// Channel is the publish/subscribe contract. Implementations: Redis pub/sub
// for deployment, an in-process fan-out for tests.
type Channel interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(ctx context.Context, tables ...string) (Subscription, error)
}
