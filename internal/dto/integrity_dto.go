package dto

import "time"

// StockMismatch reports a product whose recorded stock counter disagrees with
// the value computed from its authoritative source.
type StockMismatch struct {
	ProductID  string `json:"product_id"`
	Product    string `json:"product"`
	HasSerial  bool   `json:"has_serial"`
	Recorded   int    `json:"recorded"`
	Actual     int    `json:"actual"`
	Difference int    `json:"difference"` // actual - recorded
	Reason     string `json:"reason"`
}

// OrphanedUnit reports a unit with a dangling or inactive product reference.
type OrphanedUnit struct {
	UnitID    string `json:"unit_id"`
	ProductID string `json:"product_id"`
	Serial    string `json:"serial"`
	Status    string `json:"status"`
	// Deletable is true only when nothing else references the unit (no sold
	// record, no sale line) — a precondition for the destructive repair policy.
	Deletable bool   `json:"deletable"`
	Reason    string `json:"reason"`
}

// InvalidSerialSale reports a sale line or sold-unit record whose referenced
// unit is missing, belongs to another product, or is not in status sold.
type InvalidSerialSale struct {
	SaleItemID   string  `json:"sale_item_id"`
	SoldRecordID *string `json:"sold_record_id,omitempty"`
	ProductID    string  `json:"product_id"`
	Serial       string  `json:"serial"`
	Reason       string  `json:"reason"`
}

// InconsistentStatus reports a unit whose status disagrees with its sale
// references, together with the status re-derived from the authoritative side.
type InconsistentStatus struct {
	UnitID    string `json:"unit_id"`
	ProductID string `json:"product_id"`
	Serial    string `json:"serial"`
	Status    string `json:"status"`
	Expected  string `json:"expected"`
	Reason    string `json:"reason"`
}

// IntegrityReport aggregates the four divergence scans. Suggestions are
// free-text operator hints, never consumed programmatically.
type IntegrityReport struct {
	CheckedAt            time.Time            `json:"checked_at"`
	StockMismatches      []StockMismatch      `json:"stock_mismatches"`
	OrphanedUnits        []OrphanedUnit       `json:"orphaned_units"`
	InvalidSerialSales   []InvalidSerialSale  `json:"invalid_serial_sales"`
	InconsistentStatuses []InconsistentStatus `json:"inconsistent_statuses"`
	Suggestions          []string             `json:"suggestions"`
}

// TotalFindings returns the number of findings across all four scans.
func (r *IntegrityReport) TotalFindings() int {
	return len(r.StockMismatches) + len(r.OrphanedUnits) +
		len(r.InvalidSerialSales) + len(r.InconsistentStatuses)
}

// Clean reports whether the check found no divergence at all.
func (r *IntegrityReport) Clean() bool { return r.TotalFindings() == 0 }

// RepairResult summarizes an auto-repair run. Errors holds per-finding
// failures; a failure on one finding never aborts the rest.
type RepairResult struct {
	Repaired  int      `json:"repaired"`
	Remaining int      `json:"remaining"` // findings left after the post-repair re-check
	Errors    []string `json:"errors"`
}
