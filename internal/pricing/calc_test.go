package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func calc() Calculator {
	return Calculator{TierPercents: DefaultTierPercents(), PointsRate: 0.01}
}

func TestItemTaxInclusiveBacksOut(t *testing.T) {
	it := Item{Quantity: 1, Rate: 110, TaxRate: 10, TaxIncluded: true}
	require.InDelta(t, 10, ItemTax(it), 1e-9)
}

func TestItemTaxExclusive(t *testing.T) {
	it := Item{Quantity: 2, Rate: 50, TaxRate: 10}
	require.InDelta(t, 10, ItemTax(it), 1e-9)
}

func TestItemTaxZeroRate(t *testing.T) {
	require.Zero(t, ItemTax(Item{Quantity: 3, Rate: 25}))
}

func TestSubtotalExclTaxMixed(t *testing.T) {
	items := []Item{
		{Quantity: 1, Rate: 110, TaxRate: 10, TaxIncluded: true},
		{Quantity: 1, Rate: 100, TaxRate: 10},
	}
	require.InDelta(t, 200, SubtotalExclTax(items), 1e-9)
}

func TestPointsBalanceStacking(t *testing.T) {
	c := calc()
	items := []Item{{Quantity: 1, Rate: 100}}
	s := Settings{UsePoints: true, PointsToUse: 3000, UseBalance: true, BalanceToUse: 90}
	cust := &Customer{MembershipTier: "normal"}

	require.InDelta(t, 30, c.PointsDiscount(items, s, cust), 1e-9)
	require.InDelta(t, 70, c.BalanceDiscount(items, s, cust), 1e-9)
	require.Zero(t, c.GrandTotal(items, s, cust))
}

func TestGrandTotalNeverNegative(t *testing.T) {
	c := calc()
	items := []Item{{Quantity: 1, Rate: 10, TaxRate: 10, TaxIncluded: true}}
	s := Settings{
		DiscountPercent: 90,
		UsePoints:       true, PointsToUse: 100000,
		UseBalance: true, BalanceToUse: 100000,
	}
	cust := &Customer{MembershipTier: "platinum"}
	require.GreaterOrEqual(t, c.GrandTotal(items, s, cust), 0.0)
}

func TestMembershipDiscountRequiresCustomer(t *testing.T) {
	c := calc()
	items := []Item{{Quantity: 1, Rate: 200}}
	require.Zero(t, c.MembershipDiscountAmount(items, nil))
	require.InDelta(t, 20, c.MembershipDiscountAmount(items, &Customer{MembershipTier: "gold"}), 1e-9)
}

func TestPointsRequireCustomerAndToggle(t *testing.T) {
	c := calc()
	items := []Item{{Quantity: 1, Rate: 100}}
	require.Zero(t, c.PointsDiscount(items, Settings{PointsToUse: 500}, &Customer{}))
	require.Zero(t, c.PointsDiscount(items, Settings{UsePoints: true, PointsToUse: 500}, nil))
}

func TestDueAmount(t *testing.T) {
	c := calc()
	items := []Item{{Quantity: 2, Rate: 50}}

	require.InDelta(t, 100, c.DueAmount(items, Settings{PaymentStatus: StatusDue}, nil), 1e-9)
	require.InDelta(t, 60, c.DueAmount(items, Settings{PaymentStatus: StatusPartial, PartialPaymentAmount: 40}, nil), 1e-9)
	require.Zero(t, c.DueAmount(items, Settings{PaymentStatus: StatusPartial, PartialPaymentAmount: 500}, nil))
	require.Zero(t, c.DueAmount(items, Settings{PaymentStatus: StatusPaid}, nil))
}

func TestChangeAmount(t *testing.T) {
	c := calc()
	items := []Item{{Quantity: 1, Rate: 75}}
	require.InDelta(t, 25, c.ChangeAmount(items, Settings{AmountPaid: 100}, nil), 1e-9)
	require.Zero(t, c.ChangeAmount(items, Settings{AmountPaid: 50}, nil))
}

func TestComputeSummaryConsistency(t *testing.T) {
	c := calc()
	items := []Item{
		{Quantity: 2, Rate: 55, TaxRate: 10, TaxIncluded: true},
		{Quantity: 1, Rate: 100, TaxRate: 5},
	}
	s := Settings{DiscountPercent: 10, PaymentStatus: StatusDue}
	cust := &Customer{MembershipTier: "silver"}

	sum := c.Compute(items, s, cust)
	recomposed := Round2(sum.Subtotal + sum.Tax - sum.Discount - sum.MembershipDiscount - sum.PointsDiscount - sum.BalanceDiscount)
	require.InDelta(t, sum.GrandTotal, recomposed, 1e-9, "summary components must recompose to the grand total")
	require.InDelta(t, sum.GrandTotal, sum.DueAmount, 1e-9, "due status owes the grand total")
}
