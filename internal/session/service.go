package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/pricing"
)

// Service owns the lifecycle and mutation rules of editing sessions. All
// invariants on line items (amount derivation, silent rejection of invalid
// numeric input) are enforced here so callers can stay dumb.
type Service struct {
	Store Store
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AddItemInput describes a line added from catalog search.
type AddItemInput struct {
	ProductID     int64
	StockID       *int64
	Name          string
	Unit          string
	Quantity      int
	RetailRate    float64
	WholesaleRate float64
	TaxRate       float64
	TaxIncluded   bool
	Wholesale     bool
	Discount      float64
	SerialIDs     []int64
	WarrantyID    *int64
}

// ItemPatch carries the editable fields of a line. Nil means unchanged.
// Negative quantity or rate values are dropped without error, mirroring the
// way the edit form swallows invalid keystrokes.
type ItemPatch struct {
	Quantity  *int
	Rate      *float64
	Wholesale *bool
	Discount  *float64
}

// SettingsPatch updates session settings field by field.
type SettingsPatch struct {
	DiscountPercent      *float64
	PaymentMethod        *string
	PaymentStatus        *string
	AmountPaid           *float64
	PartialPaymentAmount *float64
	UsePoints            *bool
	PointsToUse          *float64
	UseBalance           *bool
	BalanceToUse         *float64
}

// Start seeds a new session from the persisted order snapshot.
func (s *Service) Start(ctx context.Context, order OriginalOrder, cust *Customer, staffID string) (*Session, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("session service not configured")
	}
	now := s.now()
	sess := &Session{
		ID:       uuid.NewString(),
		StaffID:  staffID,
		State:    StateEditing,
		Original: order,
		Customer: cust,
		Settings: Settings{
			PaymentStatus: order.PaymentStatus,
			PaymentMethod: order.PaymentMethod,
			AmountPaid:    order.AmountPaid,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, oi := range order.Items {
		id := oi.ID
		item := LineItem{
			ID:          uuid.NewString(),
			OrderItemID: &id,
			ProductID:   oi.ProductID,
			StockID:     oi.StockID,
			Name:        oi.Name,
			Unit:        oi.Unit,
			Quantity:    oi.Quantity,
			Rate:        oi.UnitPrice,
			RetailRate:  oi.UnitPrice,
			Discount:    oi.Discount,
			TaxRate:     oi.Tax,
			TaxIncluded: oi.TaxIncluded,
		}
		recomputeAmount(&item)
		sess.Items = append(sess.Items, item)
	}
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session by id.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("session service not configured")
	}
	return s.Store.Get(ctx, id)
}

// AddItem appends a new line. A non-positive quantity is coerced to one, the
// same way the form treats an empty quantity field on add.
func (s *Service) AddItem(ctx context.Context, sessionID string, in AddItemInput) (*Session, error) {
	return s.mutate(ctx, sessionID, func(sess *Session) {
		qty := in.Quantity
		if qty <= 0 {
			qty = 1
		}
		item := LineItem{
			ID:            uuid.NewString(),
			ProductID:     in.ProductID,
			StockID:       in.StockID,
			Name:          in.Name,
			Unit:          in.Unit,
			Quantity:      qty,
			RetailRate:    in.RetailRate,
			WholesaleRate: in.WholesaleRate,
			TaxRate:       in.TaxRate,
			TaxIncluded:   in.TaxIncluded,
			IsWholesale:   in.Wholesale,
			Discount:      in.Discount,
			SerialIDs:     in.SerialIDs,
			WarrantyID:    in.WarrantyID,
		}
		item.Rate = in.RetailRate
		if in.Wholesale && in.WholesaleRate > 0 {
			item.Rate = in.WholesaleRate
		}
		recomputeAmount(&item)
		sess.Items = append(sess.Items, item)
	})
}

// ErrItemNotFound indicates the referenced line is not part of the session.
var ErrItemNotFound = errors.New("line item not found")

// UpdateItem applies a patch to a line. Invalid values (negative quantity or
// rate) are silently dropped; quantity zero is accepted as a transient state.
func (s *Service) UpdateItem(ctx context.Context, sessionID, itemID string, patch ItemPatch) (*Session, error) {
	return s.mutateItem(ctx, sessionID, itemID, func(item *LineItem) {
		if patch.Quantity != nil && *patch.Quantity >= 0 {
			item.Quantity = *patch.Quantity
		}
		if patch.Rate != nil && *patch.Rate >= 0 {
			item.Rate = *patch.Rate
			// manual rate edits pin the current price mode
			if item.IsWholesale {
				item.WholesaleRate = *patch.Rate
			} else {
				item.RetailRate = *patch.Rate
			}
		}
		if patch.Wholesale != nil && *patch.Wholesale != item.IsWholesale {
			item.IsWholesale = *patch.Wholesale
			if item.IsWholesale && item.WholesaleRate > 0 {
				item.Rate = item.WholesaleRate
			} else {
				item.Rate = item.RetailRate
			}
		}
		if patch.Discount != nil && *patch.Discount >= 0 {
			item.Discount = *patch.Discount
		}
		recomputeAmount(item)
	})
}

// NormalizeItem is the blur-time fixup: a line left at quantity zero is
// coerced back to one.
func (s *Service) NormalizeItem(ctx context.Context, sessionID, itemID string) (*Session, error) {
	return s.mutateItem(ctx, sessionID, itemID, func(item *LineItem) {
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		recomputeAmount(item)
	})
}

// RemoveItem drops a line from the session.
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (*Session, error) {
	var found bool
	sess, err := s.mutate(ctx, sessionID, func(sess *Session) {
		kept := sess.Items[:0]
		for _, it := range sess.Items {
			if it.ID == itemID {
				found = true
				continue
			}
			kept = append(kept, it)
		}
		sess.Items = kept
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrItemNotFound
	}
	return sess, nil
}

// UpdateSettings applies a settings patch. Negative monetary inputs are
// dropped silently, matching the line-item rule.
func (s *Service) UpdateSettings(ctx context.Context, sessionID string, patch SettingsPatch) (*Session, error) {
	return s.mutate(ctx, sessionID, func(sess *Session) {
		st := &sess.Settings
		if patch.DiscountPercent != nil && *patch.DiscountPercent >= 0 {
			st.DiscountPercent = *patch.DiscountPercent
		}
		if patch.PaymentMethod != nil {
			st.PaymentMethod = *patch.PaymentMethod
		}
		if patch.PaymentStatus != nil {
			st.PaymentStatus = *patch.PaymentStatus
		}
		if patch.AmountPaid != nil && *patch.AmountPaid >= 0 {
			st.AmountPaid = *patch.AmountPaid
		}
		if patch.PartialPaymentAmount != nil && *patch.PartialPaymentAmount >= 0 {
			st.PartialPaymentAmount = *patch.PartialPaymentAmount
		}
		if patch.UsePoints != nil {
			st.UsePoints = *patch.UsePoints
		}
		if patch.PointsToUse != nil && *patch.PointsToUse >= 0 {
			st.PointsToUse = *patch.PointsToUse
		}
		if patch.UseBalance != nil {
			st.UseBalance = *patch.UseBalance
		}
		if patch.BalanceToUse != nil && *patch.BalanceToUse >= 0 {
			st.BalanceToUse = *patch.BalanceToUse
		}
	})
}

// SetCustomer attaches or detaches the selected customer. Detaching also
// disables redemption toggles since they require a customer.
func (s *Service) SetCustomer(ctx context.Context, sessionID string, cust *Customer) (*Session, error) {
	return s.mutate(ctx, sessionID, func(sess *Session) {
		sess.Customer = cust
		if cust == nil {
			sess.Settings.UsePoints = false
			sess.Settings.UseBalance = false
		}
	})
}

// MarkConfirming records a successful submission result on the session.
func (s *Service) MarkConfirming(ctx context.Context, sessionID string, confirmation map[string]any) (*Session, error) {
	return s.mutate(ctx, sessionID, func(sess *Session) {
		sess.State = StateConfirming
		sess.Confirmation = confirmation
	})
}

// Clear destroys the session.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.Store == nil {
		return errors.New("session service not configured")
	}
	return s.Store.Delete(ctx, sessionID)
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*Session)) (*Session, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("session service not configured")
	}
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	fn(sess)
	sess.UpdatedAt = s.now()
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Service) mutateItem(ctx context.Context, sessionID, itemID string, fn func(*LineItem)) (*Session, error) {
	var found bool
	sess, err := s.mutate(ctx, sessionID, func(sess *Session) {
		if item := sess.Item(itemID); item != nil {
			found = true
			fn(item)
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrItemNotFound
	}
	return sess, nil
}

func recomputeAmount(item *LineItem) {
	if item.Quantity <= 0 {
		item.Amount = 0
		return
	}
	item.Amount = pricing.Round2(item.Rate * float64(item.Quantity))
}
