package dto

// SyncResult reports the outcome of synchronizing one acquisition item (or a
// whole transaction). Partial failures land in Errors; Success is true iff
// every entity synchronized cleanly.
type SyncResult struct {
	Success      bool     `json:"success"`
	StockDelta   int      `json:"stock_delta"`
	CreatedUnits int      `json:"created_units"`
	UpdatedUnits int      `json:"updated_units"`
	Errors       []string `json:"errors"`
}

// Merge folds another item's result into a transaction-level aggregate.
func (r *SyncResult) Merge(other SyncResult) {
	r.StockDelta += other.StockDelta
	r.CreatedUnits += other.CreatedUnits
	r.UpdatedUnits += other.UpdatedUnits
	r.Errors = append(r.Errors, other.Errors...)
	r.Success = r.Success && other.Success
}

// SyncItemRequest asks the engine to (re-)synchronize one acquisition item.
type SyncItemRequest struct {
	ItemID string `json:"item_id" validate:"required,uuid"`
}
