package orderedit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func TestNormalizeFlatAndNestedAgree(t *testing.T) {
	flat := decode(t, `{
		"id": 41, "reference": "ORD-41",
		"total": 100, "tax": 10, "discount": 5, "grand_total": 105,
		"amount_paid": 105, "due_amount": 0,
		"payment_status": "paid", "payment_method": "cash"
	}`)
	nested := decode(t, `{
		"data": {
			"id": 41, "reference": "ORD-41",
			"financial": {"total": 100, "tax": 10, "discount": 5, "grand_total": 105},
			"payment": {"payment_status": "paid", "payment_method": "cash", "amount_paid": 105, "due_amount": 0}
		}
	}`)

	require.Equal(t, Normalize(flat), Normalize(nested),
		"flat and nested payloads must normalize identically")
}

func TestNormalizeToleratesGarbage(t *testing.T) {
	require.NotPanics(t, func() {
		Normalize(nil)
		Normalize(decode(t, `{"financial": "not an object", "items": 3}`))
		Normalize(decode(t, `{"data": {"payment": null}}`))
	})
}

func TestNormalizeDerivesGrandTotalWhenMissing(t *testing.T) {
	n := Normalize(decode(t, `{"id": 1, "total": 100, "tax": 10, "discount": 5}`))
	require.InDelta(t, 105, n.GrandTotal, 1e-9)
}

func TestNormalizeKeepsExplicitZeroGrandTotal(t *testing.T) {
	// Fully redeemed order: points and balance cover the whole total, the
	// retail API reports grand_total 0 and that zero must survive.
	n := Normalize(decode(t, `{"id": 1, "total": 100, "tax": 0, "discount": 0, "grand_total": 0}`))
	require.Zero(t, n.GrandTotal)

	nested := Normalize(decode(t, `{"data": {"id": 1, "financial": {"total": 100, "grand_total": 0}}}`))
	require.Zero(t, nested.GrandTotal)
}

func TestToOriginalOrderMapsItems(t *testing.T) {
	n := Normalize(decode(t, `{
		"id": 41,
		"customer": {"id": 9, "name": "Budi", "membership_tier": "gold", "points": 500, "balance": 20.5},
		"items": [
			{"id": 7, "product_id": 3, "product_stock_id": 11, "name": "Soap", "unit": "pcs",
			 "quantity": 2, "unit_price": 12.5, "discount": 0, "tax": 10, "tax_included": true}
		],
		"grand_total": 25
	}`))

	order := ToOriginalOrder(n)
	require.Len(t, order.Items, 1)
	it := order.Items[0]
	require.EqualValues(t, 7, it.ID)
	require.EqualValues(t, 3, it.ProductID)
	require.NotNil(t, it.StockID)
	require.EqualValues(t, 11, *it.StockID)
	require.Equal(t, 2, it.Quantity)
	require.InDelta(t, 12.5, it.UnitPrice, 1e-9)
	require.True(t, it.TaxIncluded)
	require.NotNil(t, order.CustomerID)
	require.EqualValues(t, 9, *order.CustomerID)

	cust := CustomerFromPayload(n.Customer)
	require.NotNil(t, cust)
	require.Equal(t, "gold", cust.MembershipTier)
	require.InDelta(t, 500, cust.Points, 1e-9)
}
