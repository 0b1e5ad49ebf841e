package reconcile

import "github.com/noah-isme/backend-pos/internal/session"

// Action classifies a reconciliation instruction.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Instruction is one row of the minimal change set sent upstream. Unchanged
// lines are never emitted: the server must not touch fields it did not
// receive (serials, warranty bindings) on rows the user left alone.
type Instruction struct {
	Action         Action  `json:"action"`
	ID             *int64  `json:"id,omitempty"`
	ProductID      int64   `json:"product_id,omitempty"`
	ProductStockID *int64  `json:"product_stock_id,omitempty"`
	Quantity       int     `json:"quantity,omitempty"`
	UnitPrice      float64 `json:"unit_price,omitempty"`
	Unit           string  `json:"unit,omitempty"`
	Discount       float64 `json:"discount,omitempty"`
	Tax            float64 `json:"tax,omitempty"`
	TaxIncluded    bool    `json:"tax_included,omitempty"`
	SerialIDs      []int64 `json:"serial_ids,omitempty"`
	WarrantyID     *int64  `json:"warranty_id,omitempty"`
}

// Diff compares the edited session lines against the persisted baseline and
// emits the minimal add/update/delete set. Lines identical to their baseline
// are omitted entirely, so an untouched session produces an empty result.
func Diff(items []session.LineItem, original []session.OriginalItem) []Instruction {
	baseline := make(map[int64]session.OriginalItem, len(original))
	for _, oi := range original {
		baseline[oi.ID] = oi
	}

	var out []Instruction
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		if it.OrderItemID == nil {
			out = append(out, instructionFor(ActionAdd, it, nil))
			continue
		}
		id := *it.OrderItemID
		seen[id] = true
		base, ok := baseline[id]
		if !ok {
			// baseline row vanished server-side; re-add rather than lose it
			out = append(out, instructionFor(ActionAdd, it, nil))
			continue
		}
		if changed(it, base) {
			out = append(out, instructionFor(ActionUpdate, it, &id))
		}
	}

	for _, oi := range original {
		if !seen[oi.ID] {
			id := oi.ID
			out = append(out, Instruction{Action: ActionDelete, ID: &id})
		}
	}
	return out
}

func changed(it session.LineItem, base session.OriginalItem) bool {
	return it.Quantity != base.Quantity ||
		it.Rate != base.UnitPrice ||
		it.Discount != base.Discount ||
		it.TaxRate != base.Tax ||
		it.TaxIncluded != base.TaxIncluded
}

func instructionFor(action Action, it session.LineItem, id *int64) Instruction {
	return Instruction{
		Action:         action,
		ID:             id,
		ProductID:      it.ProductID,
		ProductStockID: it.StockID,
		Quantity:       it.Quantity,
		UnitPrice:      it.Rate,
		Unit:           it.Unit,
		Discount:       it.Discount,
		Tax:            it.TaxRate,
		TaxIncluded:    it.TaxIncluded,
		SerialIDs:      it.SerialIDs,
		WarrantyID:     it.WarrantyID,
	}
}
