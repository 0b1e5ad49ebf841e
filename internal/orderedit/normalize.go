package orderedit

import (
	"encoding/json"

	"github.com/noah-isme/backend-pos/internal/session"
)

// Normalized is the single flat shape every order payload is reduced to
// before it reaches a confirmation view or a session seed. The retail API
// returns orders in several shapes depending on which endpoint served the
// request; nothing outside this file is allowed to know that.
type Normalized struct {
	ID            int64            `json:"id"`
	Reference     string           `json:"reference,omitempty"`
	Customer      map[string]any   `json:"customer,omitempty"`
	Items         []map[string]any `json:"items"`
	Total         float64          `json:"total"`
	Tax           float64          `json:"tax"`
	Discount      float64          `json:"discount"`
	GrandTotal    float64          `json:"grand_total"`
	AmountPaid    float64          `json:"amount_paid"`
	DueAmount     float64          `json:"due_amount"`
	PaymentStatus string           `json:"payment_status"`
	PaymentMethod string           `json:"payment_method"`
}

// Normalize flattens an order payload. Lookup order for every field: the
// top level of the (possibly data-wrapped) object first, then the
// "financial" sub-object, then the "payment" sub-object. Missing fields
// default to zero values; no shape ever causes an error.
func Normalize(raw map[string]any) Normalized {
	body := unwrapData(raw)
	fin, _ := body["financial"].(map[string]any)
	pay, _ := body["payment"].(map[string]any)

	grand := lookup(body, fin, pay, "grand_total")
	n := Normalized{
		ID:            asInt64(lookup(body, nil, nil, "id", "order_id")),
		Reference:     asString(lookup(body, nil, nil, "reference", "order_no")),
		Total:         asFloat(lookup(body, fin, pay, "total", "sub_total")),
		Tax:           asFloat(lookup(body, fin, pay, "tax", "total_tax")),
		Discount:      asFloat(lookup(body, fin, pay, "discount", "total_discount")),
		GrandTotal:    asFloat(grand),
		AmountPaid:    asFloat(lookup(body, fin, pay, "amount_paid", "paid_amount")),
		DueAmount:     asFloat(lookup(body, fin, pay, "due_amount", "due")),
		PaymentStatus: asString(lookup(body, pay, fin, "payment_status", "status")),
		PaymentMethod: asString(lookup(body, pay, fin, "payment_method", "method")),
	}

	if cust, ok := body["customer"].(map[string]any); ok {
		n.Customer = cust
	}
	if items, ok := body["items"].([]any); ok {
		for _, it := range items {
			if m, ok := it.(map[string]any); ok {
				n.Items = append(n.Items, m)
			}
		}
	}
	// Derive only when the field is absent. A present zero is real: a fully
	// redeemed order owes nothing.
	if grand == nil {
		n.GrandTotal = n.Total + n.Tax - n.Discount
	}
	return n
}

// ToOriginalOrder converts a normalized payload into the immutable session
// baseline used for diffing.
func ToOriginalOrder(n Normalized) session.OriginalOrder {
	out := session.OriginalOrder{
		ID:            n.ID,
		Reference:     n.Reference,
		Total:         n.Total,
		Tax:           n.Tax,
		Discount:      n.Discount,
		GrandTotal:    n.GrandTotal,
		AmountPaid:    n.AmountPaid,
		DueAmount:     n.DueAmount,
		PaymentStatus: n.PaymentStatus,
		PaymentMethod: n.PaymentMethod,
	}
	if n.Customer != nil {
		if id := asInt64(n.Customer["id"]); id != 0 {
			out.CustomerID = &id
		}
	}
	for _, m := range n.Items {
		item := session.OriginalItem{
			ID:          asInt64(pickAny(m, "id", "order_item_id")),
			ProductID:   asInt64(pickAny(m, "product_id")),
			Name:        asString(pickAny(m, "name", "product_name")),
			Unit:        asString(pickAny(m, "unit")),
			Quantity:    int(asInt64(pickAny(m, "quantity", "qty"))),
			UnitPrice:   asFloat(pickAny(m, "unit_price", "rate", "price")),
			Discount:    asFloat(pickAny(m, "discount")),
			Tax:         asFloat(pickAny(m, "tax", "tax_rate")),
			TaxIncluded: asBool(pickAny(m, "tax_included")),
		}
		if sid := asInt64(pickAny(m, "product_stock_id", "stock_id")); sid != 0 {
			item.StockID = &sid
		}
		out.Items = append(out.Items, item)
	}
	return out
}

// CustomerFromPayload maps an upstream customer object to a session customer.
func CustomerFromPayload(m map[string]any) *session.Customer {
	if m == nil {
		return nil
	}
	return &session.Customer{
		ID:             asInt64(pickAny(m, "id")),
		Name:           asString(pickAny(m, "name")),
		Phone:          asString(pickAny(m, "phone")),
		MembershipTier: asString(pickAny(m, "membership_tier", "tier")),
		Points:         asFloat(pickAny(m, "points")),
		Balance:        asFloat(pickAny(m, "balance")),
	}
}

func unwrapData(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	if data, ok := raw["data"].(map[string]any); ok {
		return data
	}
	return raw
}

// lookup probes the flat object first, then the two sub-objects, trying each
// key name in order.
func lookup(body, first, second map[string]any, keys ...string) any {
	for _, scope := range []map[string]any{body, first, second} {
		if scope == nil {
			continue
		}
		for _, k := range keys {
			if v, ok := scope[k]; ok && v != nil {
				return v
			}
		}
	}
	return nil
}

func pickAny(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		var f float64
		_ = json.Unmarshal([]byte(n), &f)
		return f
	default:
		return 0
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		var i int64
		_ = json.Unmarshal([]byte(n), &i)
		return i
	default:
		return 0
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	default:
		return false
	}
}
