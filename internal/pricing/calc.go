package pricing

import "math"

// Item describes a line used for total calculation.
type Item struct {
	Quantity    int
	Rate        float64
	TaxRate     float64
	TaxIncluded bool
}

// Settings carries the order-level inputs that influence totals.
type Settings struct {
	DiscountPercent      float64
	PaymentStatus        string
	AmountPaid           float64
	PartialPaymentAmount float64
	UsePoints            bool
	PointsToUse          float64
	UseBalance           bool
	BalanceToUse         float64
}

// Customer is the subset of the selected customer relevant to pricing.
// A nil customer disables membership, points, and balance discounts.
type Customer struct {
	MembershipTier string
}

// Summary aggregates every derived monetary component for an editing session.
type Summary struct {
	Subtotal           float64 `json:"subtotal"`
	Tax                float64 `json:"tax"`
	Discount           float64 `json:"discount"`
	MembershipDiscount float64 `json:"membershipDiscount"`
	PointsDiscount     float64 `json:"pointsDiscount"`
	BalanceDiscount    float64 `json:"balanceDiscount"`
	GrandTotal         float64 `json:"grandTotal"`
	DueAmount          float64 `json:"dueAmount"`
	ChangeAmount       float64 `json:"changeAmount"`
}

// Payment statuses recognised by due/change derivation.
const (
	StatusPaid    = "paid"
	StatusDue     = "due"
	StatusPartial = "partial"
)

// Round2 rounds to two decimal places. All public results pass through it.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Amount returns the stated line total. When the line is tax inclusive this
// already contains tax.
func Amount(it Item) float64 {
	if it.Quantity <= 0 {
		return 0
	}
	return Round2(it.Rate * float64(it.Quantity))
}

// ItemTax derives the tax carried by a single line. For inclusive lines the
// tax is backed out of the stated total rather than added on top.
func ItemTax(it Item) float64 {
	if it.TaxRate <= 0 {
		return 0
	}
	total := Amount(it)
	if it.TaxIncluded {
		return Round2(total - total/(1+it.TaxRate/100))
	}
	return Round2(total * it.TaxRate / 100)
}

// SubtotalExclTax sums the tax-exclusive base of every line.
func SubtotalExclTax(items []Item) float64 {
	var sum float64
	for _, it := range items {
		total := Amount(it)
		if it.TaxIncluded && it.TaxRate > 0 {
			sum += total / (1 + it.TaxRate/100)
			continue
		}
		sum += total
	}
	return Round2(sum)
}

// TotalTax sums per-line tax across the session.
func TotalTax(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += ItemTax(it)
	}
	return Round2(sum)
}

// Calculator derives totals from configurable business constants. The tier
// table and points conversion rate come from deployment configuration.
type Calculator struct {
	// TierPercents maps membership tier names to discount percentages.
	TierPercents map[string]float64
	// PointsRate converts one loyalty point into currency units.
	PointsRate float64
}

func (c Calculator) pointsRate() float64 {
	if c.PointsRate <= 0 {
		return 0.01
	}
	return c.PointsRate
}

// DiscountAmount applies the order-level discount percentage to the
// tax-exclusive subtotal.
func (c Calculator) DiscountAmount(items []Item, s Settings) float64 {
	if s.DiscountPercent <= 0 {
		return 0
	}
	return Round2(SubtotalExclTax(items) * s.DiscountPercent / 100)
}

// MembershipDiscountAmount looks up the customer's tier in the configured
// table. No customer, or an unknown tier, yields zero.
func (c Calculator) MembershipDiscountAmount(items []Item, cust *Customer) float64 {
	if cust == nil {
		return 0
	}
	percent, ok := c.TierPercents[cust.MembershipTier]
	if !ok || percent <= 0 {
		return 0
	}
	return Round2(SubtotalExclTax(items) * percent / 100)
}

// BaseTotal is the order total before points and balance redemption.
func (c Calculator) BaseTotal(items []Item, s Settings, cust *Customer) float64 {
	base := SubtotalExclTax(items) + TotalTax(items) - c.DiscountAmount(items, s) - c.MembershipDiscountAmount(items, cust)
	return Round2(base)
}

// PointsDiscount converts redeemed points into currency, capped so the
// redemption can never push the total below zero.
func (c Calculator) PointsDiscount(items []Item, s Settings, cust *Customer) float64 {
	if !s.UsePoints || cust == nil || s.PointsToUse <= 0 {
		return 0
	}
	base := c.BaseTotal(items, s, cust)
	if base <= 0 {
		return 0
	}
	return Round2(math.Min(s.PointsToUse*c.pointsRate(), base))
}

// BalanceDiscount redeems stored balance against whatever remains after
// points are applied. The caps stack sequentially, not independently.
func (c Calculator) BalanceDiscount(items []Item, s Settings, cust *Customer) float64 {
	if !s.UseBalance || cust == nil || s.BalanceToUse <= 0 {
		return 0
	}
	remaining := c.BaseTotal(items, s, cust) - c.PointsDiscount(items, s, cust)
	if remaining <= 0 {
		return 0
	}
	return Round2(math.Min(s.BalanceToUse, remaining))
}

// GrandTotal is the amount the customer owes. Never negative.
func (c Calculator) GrandTotal(items []Item, s Settings, cust *Customer) float64 {
	total := c.BaseTotal(items, s, cust) - c.PointsDiscount(items, s, cust) - c.BalanceDiscount(items, s, cust)
	return Round2(math.Max(0, total))
}

// DueAmount derives the outstanding amount from the payment status.
func (c Calculator) DueAmount(items []Item, s Settings, cust *Customer) float64 {
	switch s.PaymentStatus {
	case StatusDue:
		return c.GrandTotal(items, s, cust)
	case StatusPartial:
		return Round2(math.Max(0, c.GrandTotal(items, s, cust)-s.PartialPaymentAmount))
	default:
		return 0
	}
}

// ChangeAmount is the overpayment to hand back, never negative.
func (c Calculator) ChangeAmount(items []Item, s Settings, cust *Customer) float64 {
	return Round2(math.Max(0, s.AmountPaid-c.GrandTotal(items, s, cust)))
}

// Compute derives the full summary from scratch. Recomputation is cheap for
// the session sizes involved, so no incremental state is kept.
func (c Calculator) Compute(items []Item, s Settings, cust *Customer) Summary {
	return Summary{
		Subtotal:           SubtotalExclTax(items),
		Tax:                TotalTax(items),
		Discount:           c.DiscountAmount(items, s),
		MembershipDiscount: c.MembershipDiscountAmount(items, cust),
		PointsDiscount:     c.PointsDiscount(items, s, cust),
		BalanceDiscount:    c.BalanceDiscount(items, s, cust),
		GrandTotal:         c.GrandTotal(items, s, cust),
		DueAmount:          c.DueAmount(items, s, cust),
		ChangeAmount:       c.ChangeAmount(items, s, cust),
	}
}

// DefaultTierPercents is the fallback membership table used when the
// deployment does not override it.
func DefaultTierPercents() map[string]float64 {
	return map[string]float64{
		"normal":   0,
		"silver":   5,
		"gold":     10,
		"platinum": 15,
	}
}
