package pricing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
)

func cartOf200() []domain.CartItem {
	return []domain.CartItem{
		{ItemID: "kofte", Name: "Köfte", UnitPrice: 120, Quantity: 1},
		{ItemID: "salad", Name: "Çoban Salata", UnitPrice: 40, Quantity: 2},
	}
}

func TestCalculate_ValidCoupon(t *testing.T) {
	calc := NewCalculator(nil)

	totals := calc.Calculate(Input{Items: cartOf200(), CouponCode: "MASAPP10"})

	assert.Equal(t, 200.0, totals.Subtotal)
	assert.Equal(t, 20.0, totals.Discount)
	assert.Equal(t, 180.0, totals.Total)
}

func TestCalculate_CouponIsCaseInsensitive(t *testing.T) {
	calc := NewCalculator(nil)

	totals := calc.Calculate(Input{Items: cartOf200(), CouponCode: " masapp10 "})

	assert.Equal(t, 20.0, totals.Discount)
}

func TestCalculate_UnknownCouponGivesNoDiscount(t *testing.T) {
	calc := NewCalculator(nil)

	for _, code := range []string{"BADCODE", "", "MASAPP"} {
		totals := calc.Calculate(Input{Items: cartOf200(), CouponCode: code})
		assert.Equal(t, 0.0, totals.Discount, code)
		assert.Equal(t, 200.0, totals.Total, code)
	}
}

func TestCalculate_AllValidCouponsArePercentOfSubtotal(t *testing.T) {
	calc := NewCalculator(nil)

	for code, percent := range map[string]int{"MASAPP10": 10, "MASAPP20": 20, "WELCOME15": 15} {
		totals := calc.Calculate(Input{Items: cartOf200(), CouponCode: code})
		assert.Equal(t, 200.0*float64(percent)/100, totals.Discount, code)
	}
}

func TestCalculate_TipAndDonation(t *testing.T) {
	calc := NewCalculator(nil)

	tip, err := TipPercentage(15)
	require.NoError(t, err)
	donation, err := FixedDonation(5)
	require.NoError(t, err)

	totals := calc.Calculate(Input{
		Items:      cartOf200(),
		CouponCode: "MASAPP10",
		Tip:        tip,
		Donation:   donation,
	})

	assert.Equal(t, 30.0, totals.Tip)
	assert.Equal(t, 5.0, totals.Donation)
	assert.Equal(t, 200.0-20.0+30.0+5.0, totals.Total)
}

func TestCalculate_CustomTipAndDonation(t *testing.T) {
	calc := NewCalculator(nil)

	tip, err := CustomTip(12.5)
	require.NoError(t, err)
	donation, err := CustomDonation(3)
	require.NoError(t, err)

	totals := calc.Calculate(Input{Items: cartOf200(), Tip: tip, Donation: donation})

	assert.Equal(t, 12.5, totals.Tip)
	assert.Equal(t, 3.0, totals.Donation)
	assert.Equal(t, 215.5, totals.Total)
}

func TestCalculate_EmptyCart(t *testing.T) {
	calc := NewCalculator(nil)

	totals := calc.Calculate(Input{CouponCode: "MASAPP10"})

	assert.Equal(t, Totals{}, totals)
}

func TestCustomTip_RejectsNegative(t *testing.T) {
	_, err := CustomTip(-1)

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestCustomDonation_RejectsNegative(t *testing.T) {
	_, err := CustomDonation(-0.01)

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestTipPercentage_RejectsUnofferedValue(t *testing.T) {
	_, err := TipPercentage(7)

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestFixedDonation_RejectsUnofferedValue(t *testing.T) {
	_, err := FixedDonation(2)

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestTipSelection_OnlyOneKindActive(t *testing.T) {
	pct, err := TipPercentage(10)
	require.NoError(t, err)
	_, hasCustom := pct.Custom()
	p, hasPct := pct.Percentage()
	assert.False(t, hasCustom)
	assert.True(t, hasPct)
	assert.Equal(t, 10, p)

	custom, err := CustomTip(8)
	require.NoError(t, err)
	_, hasPct = custom.Percentage()
	assert.False(t, hasPct)

	assert.True(t, NoTip().IsNone())
	assert.Equal(t, 0.0, NoTip().Amount(100))
}

func TestLoadCouponCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coupons.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coupons:\n  summer25: 25\n  MASAPP10: 10\n"), 0o600))

	catalog, err := LoadCouponCatalog(path)
	require.NoError(t, err)

	percent, ok := catalog.Lookup("SUMMER25")
	assert.True(t, ok)
	assert.Equal(t, 25, percent)

	_, ok = catalog.Lookup("WELCOME15")
	assert.False(t, ok)
}

func TestLoadCouponCatalog_RejectsOutOfRangePercent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coupons.yaml")
	require.NoError(t, os.WriteFile(path, []byte("coupons:\n  FREE: 150\n"), 0o600))

	_, err := LoadCouponCatalog(path)
	assert.Error(t, err)
}

func TestLoadCouponCatalog_MissingFile(t *testing.T) {
	_, err := LoadCouponCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
