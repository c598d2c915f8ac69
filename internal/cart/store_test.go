package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/pricing"
)

func newTestStore() *Store {
	return NewStore(5, pricing.NewCalculator(nil))
}

func kofte(qty int) domain.CartItem {
	return domain.CartItem{ItemID: "kofte", Name: "Köfte", UnitPrice: 120, Quantity: qty}
}

func ayran(qty int) domain.CartItem {
	return domain.CartItem{ItemID: "ayran", Name: "Ayran", UnitPrice: 15, Quantity: qty}
}

func TestStore_AddItem_MergesQuantity(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.AddItem(kofte(1)))
	require.NoError(t, s.AddItem(kofte(2)))
	require.NoError(t, s.AddItem(ayran(1)))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 375.0, s.Totals().Subtotal)
}

func TestStore_AddItem_Validation(t *testing.T) {
	s := newTestStore()

	err := s.AddItem(domain.CartItem{ItemID: "", Name: "", UnitPrice: -1, Quantity: 0})

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Details, 4)
	assert.Empty(t, s.Items())
}

func TestStore_SetQuantity_ClampsToOne(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddItem(kofte(3)))

	require.NoError(t, s.SetQuantity("kofte", 0))
	assert.Equal(t, 1, s.Items()[0].Quantity)

	require.NoError(t, s.SetQuantity("kofte", -4))
	assert.Equal(t, 1, s.Items()[0].Quantity)

	require.NoError(t, s.SetQuantity("kofte", 4))
	assert.Equal(t, 4, s.Items()[0].Quantity)
}

func TestStore_UnknownItem(t *testing.T) {
	s := newTestStore()

	_, ok := apperrors.IsNotFoundError(s.SetQuantity("missing", 2))
	assert.True(t, ok)
	_, ok = apperrors.IsNotFoundError(s.SetNote("missing", "x"))
	assert.True(t, ok)
	_, ok = apperrors.IsNotFoundError(s.RemoveItem("missing"))
	assert.True(t, ok)
}

func TestStore_RemoveAndNote(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddItem(kofte(1)))
	require.NoError(t, s.AddItem(ayran(2)))

	require.NoError(t, s.SetNote("ayran", "cold"))
	require.NoError(t, s.RemoveItem("kofte"))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "cold", items[0].Notes)
	assert.Equal(t, 30.0, s.Totals().Total)
}

func TestStore_TotalsFollowEveryMutation(t *testing.T) {
	s := newTestStore()
	s.SetCoupon("MASAPP10")
	require.NoError(t, s.SelectTipPercentage(10))
	require.NoError(t, s.SelectDonation(5))

	require.NoError(t, s.AddItem(kofte(1)))
	totals := s.Totals()
	assert.Equal(t, totals.Subtotal-totals.Discount+totals.Tip+totals.Donation, totals.Total)
	assert.Equal(t, 120.0-12.0+12.0+5.0, totals.Total)

	require.NoError(t, s.AddItem(ayran(2)))
	require.NoError(t, s.SetQuantity("kofte", 2))
	totals = s.Totals()
	assert.Equal(t, 270.0, totals.Subtotal)
	assert.Equal(t, totals.Subtotal-totals.Discount+totals.Tip+totals.Donation, totals.Total)
}

func TestStore_TotalsIndependentOfOperationOrder(t *testing.T) {
	a := newTestStore()
	require.NoError(t, a.AddItem(kofte(1)))
	require.NoError(t, a.AddItem(ayran(2)))

	b := newTestStore()
	require.NoError(t, b.AddItem(ayran(1)))
	require.NoError(t, b.AddItem(kofte(1)))
	require.NoError(t, b.AddItem(ayran(1)))

	assert.Equal(t, a.Totals(), b.Totals())
}

func TestStore_TipSelectionIsMutuallyExclusive(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddItem(kofte(1)))

	require.NoError(t, s.SetCustomTip(7))
	require.NoError(t, s.SelectTipPercentage(20))
	snap := s.Snapshot()
	assert.Nil(t, snap.CustomTip)
	require.NotNil(t, snap.TipPercentage)
	assert.Equal(t, 20, *snap.TipPercentage)
	assert.Equal(t, 24.0, snap.Totals.Tip)

	require.NoError(t, s.SetCustomTip(7))
	snap = s.Snapshot()
	assert.Nil(t, snap.TipPercentage)
	require.NotNil(t, snap.CustomTip)
	assert.Equal(t, 7.0, snap.Totals.Tip)

	s.ClearTip()
	snap = s.Snapshot()
	assert.Nil(t, snap.TipPercentage)
	assert.Nil(t, snap.CustomTip)
}

func TestStore_DonationSelectionIsMutuallyExclusive(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.SetCustomDonation(3))
	require.NoError(t, s.SelectDonation(10))
	snap := s.Snapshot()
	assert.Nil(t, snap.CustomDonation)
	require.NotNil(t, snap.DonationAmount)
	assert.Equal(t, 10.0, *snap.DonationAmount)

	require.NoError(t, s.SetCustomDonation(2.5))
	snap = s.Snapshot()
	assert.Nil(t, snap.DonationAmount)
	assert.Equal(t, 2.5, snap.Totals.Donation)
}

func TestStore_NegativeCustomTipKeepsSelection(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddItem(kofte(1)))
	require.NoError(t, s.SelectTipPercentage(10))

	err := s.SetCustomTip(-5)

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
	assert.Equal(t, 12.0, s.Totals().Tip)
}

func TestStore_CommitToPreparing(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddItem(kofte(1)))

	moved := s.CommitToPreparing(s.Items())
	require.Len(t, moved, 1)
	assert.Empty(t, s.Items())
	assert.Len(t, s.Preparing(), 1)

	require.NoError(t, s.AddItem(ayran(2)))
	s.CommitToPreparing(s.Items())
	assert.Len(t, s.Preparing(), 2)
	assert.Equal(t, 3, s.ItemCount())
	assert.Equal(t, 0.0, s.Totals().Subtotal)
}

func TestStore_CommitToPreparingKeepsItemsAddedAfterSending(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddItem(kofte(1)))
	sent := s.Items()

	// changes made while the order is being written
	require.NoError(t, s.AddItem(ayran(2)))
	require.NoError(t, s.AddItem(kofte(1)))

	moved := s.CommitToPreparing(sent)

	assert.Equal(t, sent, moved)
	preparing := s.Preparing()
	require.Len(t, preparing, 1)
	assert.Equal(t, "kofte", preparing[0].ItemID)
	assert.Equal(t, 1, preparing[0].Quantity)

	active := s.Items()
	require.Len(t, active, 2)
	assert.Equal(t, "kofte", active[0].ItemID)
	assert.Equal(t, 1, active[0].Quantity)
	assert.Equal(t, "ayran", active[1].ItemID)
	assert.Equal(t, 2, active[1].Quantity)
}

func TestStore_ApplySelection(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddItem(kofte(1)))
	coupon := "MASAPP10"
	tip, err := pricing.TipPercentage(10)
	require.NoError(t, err)

	s.ApplySelection(Selection{Coupon: &coupon, Tip: &tip})

	snap := s.Snapshot()
	assert.Equal(t, "MASAPP10", snap.CouponCode)
	require.NotNil(t, snap.TipPercentage)
	assert.Equal(t, 10, *snap.TipPercentage)
	assert.Nil(t, snap.DonationAmount)

	none := pricing.NoTip()
	s.ApplySelection(Selection{Tip: &none})
	assert.Nil(t, s.Snapshot().TipPercentage)
	assert.Equal(t, "MASAPP10", s.Snapshot().CouponCode)
}

func TestStore_ClearPreparingKeepsActiveItems(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddItem(kofte(1)))
	s.CommitToPreparing(s.Items())
	require.NoError(t, s.AddItem(ayran(2)))

	s.ClearPreparing()

	assert.Empty(t, s.Preparing())
	assert.Len(t, s.Items(), 1)
	assert.Equal(t, 2, s.ItemCount())
}

func TestStore_Reset(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.AddItem(kofte(1)))
	s.CommitToPreparing(s.Items())
	require.NoError(t, s.AddItem(ayran(1)))
	s.SetCoupon("MASAPP10")
	require.NoError(t, s.SetCustomTip(5))

	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.Items)
	assert.Empty(t, snap.Preparing)
	assert.Empty(t, snap.CouponCode)
	assert.Nil(t, snap.CustomTip)
	assert.Equal(t, 0, s.ItemCount())
}

func TestRegistry_ForTable(t *testing.T) {
	r := NewRegistry(pricing.NewCalculator(nil))

	a := r.ForTable(1)
	b := r.ForTable(1)
	c := r.ForTable(2)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, c.TableNumber())
	assert.ElementsMatch(t, []int{1, 2}, r.Tables())
}

func TestRegistry_SnapshotDoesNotCreateCart(t *testing.T) {
	r := NewRegistry(pricing.NewCalculator(nil))
	require.NoError(t, r.ForTable(1).AddItem(kofte(2)))

	snap := r.Snapshot(1)
	assert.Len(t, snap.Items, 1)
	assert.Equal(t, 240.0, snap.Totals.Subtotal)

	empty := r.Snapshot(42)
	assert.Equal(t, 42, empty.TableNumber)
	assert.Empty(t, empty.Items)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, []int{1}, r.Tables())
}
