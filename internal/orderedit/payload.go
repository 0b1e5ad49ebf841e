package orderedit

import (
	"github.com/noah-isme/backend-pos/internal/pricing"
	"github.com/noah-isme/backend-pos/internal/reconcile"
	"github.com/noah-isme/backend-pos/internal/session"
)

// UpdatePayload is the request body sent to the retail API when a session is
// submitted. Items carry only the reconciliation instructions; everything
// else is the recomputed financial state.
type UpdatePayload struct {
	Items         []reconcile.Instruction `json:"items"`
	Tax           float64                 `json:"tax"`
	Discount      float64                 `json:"discount"`
	PaymentStatus string                  `json:"payment_status"`
	PaymentMethod string                  `json:"payment_method"`
	AmountPaid    float64                 `json:"amount_paid"`
	ChangeAmount  float64                 `json:"change_amount"`
	DueAmount     float64                 `json:"due_amount"`
}

// BuildPayload derives the full submission body from a session. An empty
// instruction list is valid: a byte-identical session submits a financial
// no-op.
func BuildPayload(sess *session.Session, calc pricing.Calculator) (UpdatePayload, pricing.Summary) {
	items := pricingItems(sess.Items)
	settings := pricingSettings(sess.Settings)
	cust := pricingCustomer(sess.Customer)
	summary := calc.Compute(items, settings, cust)

	return UpdatePayload{
		Items:         reconcile.Diff(sess.Items, sess.Original.Items),
		Tax:           summary.Tax,
		Discount:      summary.Discount + summary.MembershipDiscount + summary.PointsDiscount + summary.BalanceDiscount,
		PaymentStatus: sess.Settings.PaymentStatus,
		PaymentMethod: sess.Settings.PaymentMethod,
		AmountPaid:    sess.Settings.AmountPaid,
		ChangeAmount:  summary.ChangeAmount,
		DueAmount:     summary.DueAmount,
	}, summary
}

func pricingItems(items []session.LineItem) []pricing.Item {
	out := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Item{
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			TaxRate:     it.TaxRate,
			TaxIncluded: it.TaxIncluded,
		})
	}
	return out
}

func pricingSettings(s session.Settings) pricing.Settings {
	return pricing.Settings{
		DiscountPercent:      s.DiscountPercent,
		PaymentStatus:        s.PaymentStatus,
		AmountPaid:           s.AmountPaid,
		PartialPaymentAmount: s.PartialPaymentAmount,
		UsePoints:            s.UsePoints,
		PointsToUse:          s.PointsToUse,
		UseBalance:           s.UseBalance,
		BalanceToUse:         s.BalanceToUse,
	}
}

func pricingCustomer(c *session.Customer) *pricing.Customer {
	if c == nil {
		return nil
	}
	return &pricing.Customer{MembershipTier: c.MembershipTier}
}
