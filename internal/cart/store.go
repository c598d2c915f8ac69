package cart

import (
	"fmt"
	"sync"

	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/pricing"
)

// Store owns one table's in-progress cart. Items already sent to the kitchen
// move to the preparing partition, which only grows until Reset.
type Store struct {
	mu         sync.Mutex
	table      int
	calculator *pricing.Calculator

	items     []domain.CartItem
	preparing []domain.CartItem
	coupon    string
	tip       pricing.TipSelection
	donation  pricing.DonationSelection
}

func NewStore(table int, calculator *pricing.Calculator) *Store {
	return &Store{
		table:      table,
		calculator: calculator,
	}
}

func (s *Store) TableNumber() int {
	return s.table
}

// AddItem adds a line, merging the quantity into an existing line with the
// same item id.
func (s *Store) AddItem(item domain.CartItem) error {
	if err := validateItem(item); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(item.ItemID); idx >= 0 {
		s.items[idx].Quantity += item.Quantity
		if item.Notes != "" {
			s.items[idx].Notes = item.Notes
		}
		return nil
	}
	s.items = append(s.items, item)
	return nil
}

func (s *Store) RemoveItem(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(itemID)
	if idx < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("item %s is not in the cart", itemID))
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return nil
}

// SetQuantity clamps n to a minimum of 1. Removing a line needs RemoveItem.
func (s *Store) SetQuantity(itemID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(itemID)
	if idx < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("item %s is not in the cart", itemID))
	}
	if n < 1 {
		n = 1
	}
	s.items[idx].Quantity = n
	return nil
}

func (s *Store) SetNote(itemID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(itemID)
	if idx < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("item %s is not in the cart", itemID))
	}
	s.items[idx].Notes = text
	return nil
}

// Clear empties the active partition only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

func (s *Store) SetCoupon(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coupon = code
}

// SelectTipPercentage replaces any custom tip.
func (s *Store) SelectTipPercentage(percent int) error {
	sel, err := pricing.TipPercentage(percent)
	if err != nil {
		return err
	}
	s.setTip(sel)
	return nil
}

// SetCustomTip replaces any selected percentage. A negative amount is
// rejected and the current selection is kept.
func (s *Store) SetCustomTip(amount float64) error {
	sel, err := pricing.CustomTip(amount)
	if err != nil {
		return err
	}
	s.setTip(sel)
	return nil
}

func (s *Store) ClearTip() {
	s.setTip(pricing.NoTip())
}

func (s *Store) SelectDonation(amount float64) error {
	sel, err := pricing.FixedDonation(amount)
	if err != nil {
		return err
	}
	s.setDonation(sel)
	return nil
}

func (s *Store) SetCustomDonation(amount float64) error {
	sel, err := pricing.CustomDonation(amount)
	if err != nil {
		return err
	}
	s.setDonation(sel)
	return nil
}

func (s *Store) ClearDonation() {
	s.setDonation(pricing.NoDonation())
}

// Selection is a set of pricing choices to apply together. Nil fields keep
// the current choice.
type Selection struct {
	Coupon   *string
	Tip      *pricing.TipSelection
	Donation *pricing.DonationSelection
}

// ApplySelection sets every non-nil choice at once. Selections come from the
// pricing constructors, so building them is where invalid input is rejected.
func (s *Store) ApplySelection(sel Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sel.Coupon != nil {
		s.coupon = *sel.Coupon
	}
	if sel.Tip != nil {
		s.tip = *sel.Tip
	}
	if sel.Donation != nil {
		s.donation = *sel.Donation
	}
}

func (s *Store) setTip(sel pricing.TipSelection) {
	s.ApplySelection(Selection{Tip: &sel})
}

func (s *Store) setDonation(sel pricing.DonationSelection) {
	s.ApplySelection(Selection{Donation: &sel})
}

// Items returns a copy of the active partition.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartItem(nil), s.items...)
}

// Preparing returns a copy of the items already committed to an order.
func (s *Store) Preparing() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartItem(nil), s.preparing...)
}

// ItemCount is the number of units in both partitions.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, item := range s.items {
		count += item.Quantity
	}
	for _, item := range s.preparing {
		count += item.Quantity
	}
	return count
}

// Totals prices the active partition with the current selections. Nothing
// is cached.
func (s *Store) Totals() pricing.Totals {
	s.mu.Lock()
	in := pricing.Input{
		Items:      append([]domain.CartItem(nil), s.items...),
		CouponCode: s.coupon,
		Tip:        s.tip,
		Donation:   s.donation,
	}
	s.mu.Unlock()

	return s.calculator.Calculate(in)
}

// Snapshot captures the cart state for rendering.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		TableNumber: s.table,
		Items:       append([]domain.CartItem{}, s.items...),
		Preparing:   append([]domain.CartItem{}, s.preparing...),
		CouponCode:  s.coupon,
	}
	if p, ok := s.tip.Percentage(); ok {
		snap.TipPercentage = &p
	}
	if a, ok := s.tip.Custom(); ok {
		snap.CustomTip = &a
	}
	if a, ok := s.donation.Fixed(); ok {
		snap.DonationAmount = &a
	}
	if a, ok := s.donation.Custom(); ok {
		snap.CustomDonation = &a
	}
	s.mu.Unlock()

	snap.Totals = s.Totals()
	return snap
}

// CommitToPreparing moves the items that were sent to the kitchen into the
// preparing partition. Only the sent quantities leave the active partition:
// anything added or raised while the order was being written stays active
// for the next batch.
func (s *Store) CommitToPreparing(sent []domain.CartItem) []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range sent {
		i := s.indexOf(item.ItemID)
		if i < 0 {
			continue
		}
		s.items[i].Quantity -= item.Quantity
		if s.items[i].Quantity <= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		}
	}
	if len(s.items) == 0 {
		s.items = nil
	}

	moved := append([]domain.CartItem(nil), sent...)
	s.preparing = append(s.preparing, moved...)
	return moved
}

// ClearPreparing forgets the items sent to the kitchen, leaving the active
// partition alone. Used when the table's order was cancelled elsewhere.
func (s *Store) ClearPreparing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preparing = nil
}

// Reset drops both partitions and all selections. Used once the table's
// order is paid so nothing is submitted twice.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.preparing = nil
	s.coupon = ""
	s.tip = pricing.NoTip()
	s.donation = pricing.NoDonation()
}

func (s *Store) indexOf(itemID string) int {
	for i, item := range s.items {
		if item.ItemID == itemID {
			return i
		}
	}
	return -1
}

func validateItem(item domain.CartItem) error {
	var details []apperrors.ValidationDetail

	if item.ItemID == "" {
		details = append(details, apperrors.ValidationDetail{Field: "itemId", Message: "itemId is required"})
	}
	if item.Name == "" {
		details = append(details, apperrors.ValidationDetail{Field: "name", Message: "name is required"})
	}
	if item.UnitPrice < 0 {
		details = append(details, apperrors.ValidationDetail{Field: "unitPrice", Message: "unitPrice must be non-negative"})
	}
	if item.Quantity < 1 {
		details = append(details, apperrors.ValidationDetail{Field: "quantity", Message: "quantity must be at least 1"})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid cart item", details...)
	}
	return nil
}
