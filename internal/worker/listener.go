package worker

import (
	"context"
	"encoding/json"

	"github.com/tipatpati/golden-phone-management-sub010/internal/model"
	"github.com/tipatpati/golden-phone-management-sub010/internal/notify"
	"github.com/tipatpati/golden-phone-management-sub010/internal/repository"
	"github.com/tipatpati/golden-phone-management-sub010/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SyncListener consumes supplier-side change events and drives the
// synchronizer. Delivery is at-least-once and the payload may be stale, so
// every handler re-reads current state; idempotency lives in the sync service,
// not here.
type SyncListener struct {
	channel    notify.Channel
	suppliers  repository.SupplierRepository
	sync       service.SyncService
	dispatcher *Dispatcher
}

func NewSyncListener(channel notify.Channel, suppliers repository.SupplierRepository, sync service.SyncService, dispatcher *Dispatcher) *SyncListener {
	return &SyncListener{
		channel:    channel,
		suppliers:  suppliers,
		sync:       sync,
		dispatcher: dispatcher,
	}
}

// Start subscribes and processes events until ctx is cancelled. The returned
// stop function closes the subscription.
func (l *SyncListener) Start(ctx context.Context) (stop func(), err error) {
	sub, err := l.channel.Subscribe(ctx, notify.TableSupplierTxns, notify.TableSupplierTxnItems)
	if err != nil {
		return nil, err
	}
	go func() {
		log.Info().Msg("sync listener started")
		for e := range sub.Events() {
			l.handle(ctx, e)
		}
		log.Info().Msg("sync listener stopped")
	}()
	return func() { _ = sub.Close() }, nil
}

func (l *SyncListener) handle(ctx context.Context, e notify.Event) {
	switch e.Table {
	case notify.TableSupplierTxns:
		l.handleTransaction(ctx, e)
	case notify.TableSupplierTxnItems:
		l.handleItem(ctx, e)
	}
}

func (l *SyncListener) handleTransaction(ctx context.Context, e notify.Event) {
	if e.Action == notify.ActionDelete {
		return // items carry their own delete events
	}
	id, err := uuid.Parse(e.RowID)
	if err != nil {
		log.Error().Str("row_id", e.RowID).Msg("listener: bad transaction id")
		return
	}
	result, err := l.sync.SynchronizeTransaction(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("transaction_id", e.RowID).Msg("listener: transaction sync failed")
		return
	}
	if !result.Success {
		log.Warn().Strs("errors", result.Errors).Str("transaction_id", e.RowID).
			Msg("listener: transaction sync incomplete")
	}
}

func (l *SyncListener) handleItem(ctx context.Context, e notify.Event) {
	id, err := uuid.Parse(e.RowID)
	if err != nil {
		log.Error().Str("row_id", e.RowID).Msg("listener: bad item id")
		return
	}

	if e.Action == notify.ActionDelete {
		// The row is gone; the compensation works off the event pre-image.
		var item model.SupplierTransactionItem
		if err := json.Unmarshal(e.Old, &item); err != nil {
			log.Error().Err(err).Str("item_id", e.RowID).Msg("listener: undecodable delete pre-image")
			return
		}
		if err := l.sync.CompensateItemDelete(ctx, &item); err != nil {
			log.Error().Err(err).Str("item_id", e.RowID).Msg("listener: compensation failed")
		}
		return
	}

	item, err := l.suppliers.FindItem(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("item_id", e.RowID).Msg("listener: item not found")
		return
	}
	if item.Transaction == nil ||
		item.Transaction.Status != model.TransactionStatusCompleted ||
		item.Transaction.Type != model.TransactionTypePurchase {
		return // only completed purchases drive inventory
	}

	result, err := l.sync.SynchronizeItem(ctx, item)
	if err != nil {
		log.Error().Err(err).Str("item_id", e.RowID).Msg("listener: item sync failed, scheduling retry")
		l.scheduleRetry(ctx, e.RowID)
		return
	}
	if !result.Success {
		log.Warn().Strs("errors", result.Errors).Str("item_id", e.RowID).
			Msg("listener: item sync incomplete, scheduling retry")
		l.scheduleRetry(ctx, e.RowID)
	}
}

func (l *SyncListener) scheduleRetry(ctx context.Context, itemID string) {
	if l.dispatcher == nil {
		return
	}
	if err := l.dispatcher.EnqueueSyncRetry(ctx, SyncJob{ItemID: itemID}); err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("listener: failed to enqueue retry")
	}
}
