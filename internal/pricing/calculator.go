package pricing

import (
	"masapp/internal/domain"
)

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Tip      float64 `json:"tip"`
	Donation float64 `json:"donation"`
	Total    float64 `json:"total"`
}

// Input is everything the calculator needs; it has no other source of state.
type Input struct {
	Items      []domain.CartItem
	CouponCode string
	Tip        TipSelection
	Donation   DonationSelection
}

type Calculator struct {
	coupons *CouponCatalog
}

func NewCalculator(coupons *CouponCatalog) *Calculator {
	if coupons == nil {
		coupons = DefaultCouponCatalog()
	}
	return &Calculator{coupons: coupons}
}

func (c *Calculator) Coupons() *CouponCatalog {
	return c.coupons
}

// Calculate computes total = subtotal - discount + tip + donation.
// An unknown coupon yields a zero discount.
func (c *Calculator) Calculate(in Input) Totals {
	subtotal := Subtotal(in.Items)

	discount := 0.0
	if percent, ok := c.coupons.Lookup(in.CouponCode); ok {
		discount = percentOf(subtotal, percent)
	}

	tip := domain.RoundCents(in.Tip.Amount(subtotal))
	donation := domain.RoundCents(in.Donation.Amount())

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tip:      tip,
		Donation: donation,
		Total:    domain.RoundCents(subtotal - discount + tip + donation),
	}
}

func Subtotal(items []domain.CartItem) float64 {
	sum := 0.0
	for _, item := range items {
		sum += item.LineTotal()
	}
	return domain.RoundCents(sum)
}

func percentOf(amount float64, percent int) float64 {
	return domain.RoundCents(amount * float64(percent) / 100)
}
