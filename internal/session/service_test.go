package session_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/session"
)

func newService(t *testing.T) *session.Service {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return &session.Service{Store: session.RedisStore{R: client, TTL: time.Minute}}
}

func seedOrder() session.OriginalOrder {
	return session.OriginalOrder{
		ID:            41,
		PaymentStatus: "paid",
		PaymentMethod: "cash",
		Items: []session.OriginalItem{
			{ID: 1, ProductID: 10, Quantity: 2, UnitPrice: 50, Tax: 10},
			{ID: 2, ProductID: 11, Quantity: 1, UnitPrice: 120, Tax: 10, TaxIncluded: true},
		},
	}
}

func TestStartSeedsFromOriginal(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx, seedOrder(), nil, "staff-9")
	require.NoError(t, err)
	require.Equal(t, session.StateEditing, sess.State)
	require.Len(t, sess.Items, 2)
	require.NotNil(t, sess.Items[0].OrderItemID)
	require.EqualValues(t, 1, *sess.Items[0].OrderItemID)
	require.Equal(t, float64(100), sess.Items[0].Amount)
	require.Equal(t, "paid", sess.Settings.PaymentStatus)

	loaded, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, loaded.ID)
}

func TestAmountInvariantAfterMutations(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	sess, err := svc.Start(ctx, seedOrder(), nil, "")
	require.NoError(t, err)

	itemID := sess.Items[0].ID
	qty := 5
	rate := 12.5
	sess, err = svc.UpdateItem(ctx, sess.ID, itemID, session.ItemPatch{Quantity: &qty, Rate: &rate})
	require.NoError(t, err)
	got := sess.Item(itemID)
	require.Equal(t, 62.5, got.Amount)
	require.Equal(t, 5, got.Quantity)
}

func TestNegativeInputSilentlyDropped(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	sess, err := svc.Start(ctx, seedOrder(), nil, "")
	require.NoError(t, err)

	itemID := sess.Items[0].ID
	badQty := -3
	badRate := -1.0
	sess, err = svc.UpdateItem(ctx, sess.ID, itemID, session.ItemPatch{Quantity: &badQty, Rate: &badRate})
	require.NoError(t, err)
	got := sess.Item(itemID)
	require.Equal(t, 2, got.Quantity)
	require.Equal(t, float64(50), got.Rate)
}

func TestZeroQuantityTransientAndNormalize(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	sess, err := svc.Start(ctx, seedOrder(), nil, "")
	require.NoError(t, err)

	itemID := sess.Items[0].ID
	zero := 0
	sess, err = svc.UpdateItem(ctx, sess.ID, itemID, session.ItemPatch{Quantity: &zero})
	require.NoError(t, err)
	require.Equal(t, 0, sess.Item(itemID).Quantity)
	require.Equal(t, float64(0), sess.Item(itemID).Amount)

	sess, err = svc.NormalizeItem(ctx, sess.ID, itemID)
	require.NoError(t, err)
	require.Equal(t, 1, sess.Item(itemID).Quantity)
	require.Equal(t, float64(50), sess.Item(itemID).Amount)
}

func TestWholesaleToggleSwitchesRate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	sess, err := svc.Start(ctx, seedOrder(), nil, "")
	require.NoError(t, err)

	sess, err = svc.AddItem(ctx, sess.ID, session.AddItemInput{
		ProductID: 99, Quantity: 2, RetailRate: 100, WholesaleRate: 80,
	})
	require.NoError(t, err)
	item := sess.Items[len(sess.Items)-1]
	require.Equal(t, float64(100), item.Rate)

	on := true
	sess, err = svc.UpdateItem(ctx, sess.ID, item.ID, session.ItemPatch{Wholesale: &on})
	require.NoError(t, err)
	got := sess.Item(item.ID)
	require.Equal(t, float64(80), got.Rate)
	require.Equal(t, float64(160), got.Amount)

	off := false
	sess, err = svc.UpdateItem(ctx, sess.ID, item.ID, session.ItemPatch{Wholesale: &off})
	require.NoError(t, err)
	require.Equal(t, float64(100), sess.Item(item.ID).Rate)
}

func TestRemoveItemAndClear(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	sess, err := svc.Start(ctx, seedOrder(), nil, "")
	require.NoError(t, err)

	sess, err = svc.RemoveItem(ctx, sess.ID, sess.Items[0].ID)
	require.NoError(t, err)
	require.Len(t, sess.Items, 1)

	_, err = svc.RemoveItem(ctx, sess.ID, "missing")
	require.ErrorIs(t, err, session.ErrItemNotFound)

	require.NoError(t, svc.Clear(ctx, sess.ID))
	_, err = svc.Get(ctx, sess.ID)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestDetachCustomerDisablesRedemption(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	sess, err := svc.Start(ctx, seedOrder(), &session.Customer{ID: 7, MembershipTier: "gold"}, "")
	require.NoError(t, err)

	use := true
	pts := 100.0
	sess, err = svc.UpdateSettings(ctx, sess.ID, session.SettingsPatch{UsePoints: &use, PointsToUse: &pts})
	require.NoError(t, err)
	require.True(t, sess.Settings.UsePoints)

	sess, err = svc.SetCustomer(ctx, sess.ID, nil)
	require.NoError(t, err)
	require.Nil(t, sess.Customer)
	require.False(t, sess.Settings.UsePoints)
	require.False(t, sess.Settings.UseBalance)
}
