package pricing

import (
	"fmt"

	apperrors "masapp/internal/errors"
)

// TipPercentages are the percentages offered on the tip selector.
var TipPercentages = []int{5, 10, 15, 20}

// DonationAmounts are the fixed donation buttons.
var DonationAmounts = []float64{1, 5, 10}

type selectionKind int

const (
	selectionNone selectionKind = iota
	selectionPercentage
	selectionFixed
	selectionCustom
)

// TipSelection holds at most one of a percentage or a custom amount.
// The zero value means no tip.
type TipSelection struct {
	kind    selectionKind
	percent int
	amount  float64
}

func NoTip() TipSelection {
	return TipSelection{}
}

func TipPercentage(percent int) (TipSelection, error) {
	for _, p := range TipPercentages {
		if p == percent {
			return TipSelection{kind: selectionPercentage, percent: percent}, nil
		}
	}
	return TipSelection{}, apperrors.NewValidationError(
		fmt.Sprintf("tip percentage %d is not offered", percent),
		apperrors.ValidationDetail{Field: "tipPercentage", Message: "must be one of the offered percentages"},
	)
}

func CustomTip(amount float64) (TipSelection, error) {
	if amount < 0 {
		return TipSelection{}, apperrors.NewValidationError(
			"custom tip cannot be negative",
			apperrors.ValidationDetail{Field: "customTip", Message: "must be zero or greater"},
		)
	}
	return TipSelection{kind: selectionCustom, amount: amount}, nil
}

// Percentage returns the selected percentage, if one is active.
func (t TipSelection) Percentage() (int, bool) {
	return t.percent, t.kind == selectionPercentage
}

// Custom returns the custom amount, if one is active.
func (t TipSelection) Custom() (float64, bool) {
	return t.amount, t.kind == selectionCustom
}

func (t TipSelection) IsNone() bool {
	return t.kind == selectionNone
}

// Amount resolves the tip against a subtotal.
func (t TipSelection) Amount(subtotal float64) float64 {
	switch t.kind {
	case selectionPercentage:
		return percentOf(subtotal, t.percent)
	case selectionCustom:
		return t.amount
	}
	return 0
}

// DonationSelection holds at most one of a fixed amount or a custom amount.
type DonationSelection struct {
	kind   selectionKind
	amount float64
}

func NoDonation() DonationSelection {
	return DonationSelection{}
}

func FixedDonation(amount float64) (DonationSelection, error) {
	for _, a := range DonationAmounts {
		if a == amount {
			return DonationSelection{kind: selectionFixed, amount: amount}, nil
		}
	}
	return DonationSelection{}, apperrors.NewValidationError(
		fmt.Sprintf("donation amount %.2f is not offered", amount),
		apperrors.ValidationDetail{Field: "donationAmount", Message: "must be one of the offered amounts"},
	)
}

func CustomDonation(amount float64) (DonationSelection, error) {
	if amount < 0 {
		return DonationSelection{}, apperrors.NewValidationError(
			"custom donation cannot be negative",
			apperrors.ValidationDetail{Field: "customDonation", Message: "must be zero or greater"},
		)
	}
	return DonationSelection{kind: selectionCustom, amount: amount}, nil
}

func (d DonationSelection) Fixed() (float64, bool) {
	return d.amount, d.kind == selectionFixed
}

func (d DonationSelection) Custom() (float64, bool) {
	return d.amount, d.kind == selectionCustom
}

func (d DonationSelection) IsNone() bool {
	return d.kind == selectionNone
}

func (d DonationSelection) Amount() float64 {
	if d.kind == selectionNone {
		return 0
	}
	return d.amount
}
