package session

import "time"

// LineItem is one editable product row inside an editing session. Amount is
// always derived from rate and quantity; it is never set directly.
type LineItem struct {
	ID            string  `json:"id"`
	OrderItemID   *int64  `json:"orderItemId,omitempty"`
	ProductID     int64   `json:"productId"`
	StockID       *int64  `json:"stockId,omitempty"`
	Name          string  `json:"name,omitempty"`
	Unit          string  `json:"unit,omitempty"`
	Quantity      int     `json:"quantity"`
	Rate          float64 `json:"rate"`
	Amount        float64 `json:"amount"`
	Discount      float64 `json:"discount"`
	TaxRate       float64 `json:"taxRate"`
	TaxIncluded   bool    `json:"taxIncluded"`
	IsWholesale   bool    `json:"isWholesale"`
	RetailRate    float64 `json:"retailRate"`
	WholesaleRate float64 `json:"wholesaleRate"`
	SerialIDs     []int64 `json:"serialIds,omitempty"`
	WarrantyID    *int64  `json:"warrantyId,omitempty"`
}

// Settings is the session-scoped mutable form state. Due and change amounts
// are intentionally absent: they are derived by the pricing calculator.
type Settings struct {
	DiscountPercent      float64 `json:"discountPercent"`
	PaymentMethod        string  `json:"paymentMethod"`
	PaymentStatus        string  `json:"paymentStatus"`
	AmountPaid           float64 `json:"amountPaid"`
	PartialPaymentAmount float64 `json:"partialPaymentAmount"`
	UsePoints            bool    `json:"usePoints"`
	PointsToUse          float64 `json:"pointsToUse"`
	UseBalance           bool    `json:"useBalance"`
	BalanceToUse         float64 `json:"balanceToUse"`
}

// Customer is the selected customer attached to the session.
type Customer struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone,omitempty"`
	MembershipTier string  `json:"membershipTier"`
	Points         float64 `json:"points"`
	Balance        float64 `json:"balance"`
}

// OriginalItem is a persisted order line as the upstream API returned it.
// Used only as a diff baseline; never mutated.
type OriginalItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"productId"`
	StockID     *int64  `json:"stockId,omitempty"`
	Name        string  `json:"name,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Discount    float64 `json:"discount"`
	Tax         float64 `json:"tax"`
	TaxIncluded bool    `json:"taxIncluded"`
}

// OriginalOrder is the immutable snapshot of the persisted order fetched when
// the editing session starts.
type OriginalOrder struct {
	ID            int64          `json:"id"`
	Reference     string         `json:"reference,omitempty"`
	CustomerID    *int64         `json:"customerId,omitempty"`
	Items         []OriginalItem `json:"items"`
	Total         float64        `json:"total"`
	Tax           float64        `json:"tax"`
	Discount      float64        `json:"discount"`
	GrandTotal    float64        `json:"grandTotal"`
	AmountPaid    float64        `json:"amountPaid"`
	DueAmount     float64        `json:"dueAmount"`
	PaymentStatus string         `json:"paymentStatus"`
	PaymentMethod string         `json:"paymentMethod"`
}

// Session states. A session in StateConfirming holds a confirmation payload
// that survives until the user dismisses it.
const (
	StateEditing    = "editing"
	StateConfirming = "confirming"
)

// Session is the full editing state for one order, owned by this service and
// persisted between requests.
type Session struct {
	ID           string          `json:"id"`
	StaffID      string          `json:"staffId,omitempty"`
	State        string          `json:"state"`
	Original     OriginalOrder   `json:"original"`
	Items        []LineItem      `json:"items"`
	Settings     Settings        `json:"settings"`
	Customer     *Customer       `json:"customer,omitempty"`
	Confirmation map[string]any  `json:"confirmation,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Item returns a pointer to the line with the given local id, or nil.
func (s *Session) Item(id string) *LineItem {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return &s.Items[i]
		}
	}
	return nil
}
