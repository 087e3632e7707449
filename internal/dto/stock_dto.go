package dto

// EffectiveStock is one row of the batched stock query: a live count of
// available units for serialized products, the stored counter otherwise.
type EffectiveStock struct {
	ProductID string `json:"product_id"`
	HasSerial bool   `json:"has_serial"`
	Stock     int    `json:"stock"`
}

type EffectiveStockResponse struct {
	Data []EffectiveStock `json:"data"`
}
