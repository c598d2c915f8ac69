package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"masapp/internal/cart"
	"masapp/internal/commons"
	"masapp/internal/domain"
	apperrors "masapp/internal/errors"
	"masapp/internal/order/usecase"
	"masapp/internal/pricing"
)

type TablePanel interface {
	Cart() *cart.Store
	PrepareOrder(ctx context.Context) (*usecase.PrepareResult, error)
	RequestBill(ctx context.Context, by domain.Requester) (*domain.BillRequest, error)
}

// Panels resolves the panel of a table, creating it on first use.
type Panels func(table int) TablePanel

// CartReader reads a table's cart without creating anything for it.
type CartReader func(table int) cart.Snapshot

// TableController serves the customer panel: cart editing, sending the
// order to the kitchen and asking for the bill.
type TableController struct {
	panels Panels
	carts  CartReader
	logger *zap.Logger
}

func NewTableController(panels Panels, carts CartReader, logger *zap.Logger) *TableController {
	return &TableController{
		panels: panels,
		carts:  carts,
		logger: logger,
	}
}

type updateItemRequest struct {
	Quantity *int    `json:"quantity"`
	Notes    *string `json:"notes"`
}

// selectionRequest changes coupon, tip and donation. Absent fields are left
// alone; clearTip and clearDonation drop the current choice.
type selectionRequest struct {
	CouponCode     *string  `json:"couponCode"`
	TipPercentage  *int     `json:"tipPercentage"`
	CustomTip      *float64 `json:"customTip"`
	ClearTip       bool     `json:"clearTip"`
	DonationAmount *float64 `json:"donationAmount"`
	CustomDonation *float64 `json:"customDonation"`
	ClearDonation  bool     `json:"clearDonation"`
}

type billRequest struct {
	RequestedBy domain.Requester `json:"requestedBy"`
}

type prepareResponse struct {
	TraceID string        `json:"traceId"`
	Created bool          `json:"created"`
	Order   domain.Order  `json:"order"`
	Cart    cart.Snapshot `json:"cart"`
}

func (c *TableController) GetCart(w http.ResponseWriter, r *http.Request) {
	traceID, logger := commons.Trace(c.logger)

	table, err := commons.TableParam(r)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}
	commons.WriteJSON(w, logger, http.StatusOK, c.carts(table))
}

func (c *TableController) AddItem(w http.ResponseWriter, r *http.Request) {
	c.withPanel(w, r, func(p TablePanel, traceID string, logger *zap.Logger) {
		var item domain.CartItem
		if err := commons.DecodeJSON(r, &item); err != nil {
			commons.WriteError(w, logger, traceID, err)
			return
		}
		if err := p.Cart().AddItem(item); err != nil {
			commons.WriteError(w, logger, traceID, err)
			return
		}
		commons.WriteJSON(w, logger, http.StatusCreated, p.Cart().Snapshot())
	})
}

func (c *TableController) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c.withPanel(w, r, func(p TablePanel, traceID string, logger *zap.Logger) {
		itemID := chi.URLParam(r, "itemId")

		var req updateItemRequest
		if err := commons.DecodeJSON(r, &req); err != nil {
			commons.WriteError(w, logger, traceID, err)
			return
		}
		if req.Quantity == nil && req.Notes == nil {
			commons.WriteValidationError(w, logger, traceID, "nothing to update", apperrors.ValidationDetail{
				Field:   "body",
				Message: "quantity or notes is required",
			})
			return
		}

		if req.Quantity != nil {
			if err := p.Cart().SetQuantity(itemID, *req.Quantity); err != nil {
				commons.WriteError(w, logger, traceID, err)
				return
			}
		}
		if req.Notes != nil {
			if err := p.Cart().SetNote(itemID, *req.Notes); err != nil {
				commons.WriteError(w, logger, traceID, err)
				return
			}
		}
		commons.WriteJSON(w, logger, http.StatusOK, p.Cart().Snapshot())
	})
}

func (c *TableController) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c.withPanel(w, r, func(p TablePanel, traceID string, logger *zap.Logger) {
		if err := p.Cart().RemoveItem(chi.URLParam(r, "itemId")); err != nil {
			commons.WriteError(w, logger, traceID, err)
			return
		}
		commons.WriteJSON(w, logger, http.StatusOK, p.Cart().Snapshot())
	})
}

func (c *TableController) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	c.withPanel(w, r, func(p TablePanel, traceID string, logger *zap.Logger) {
		var req selectionRequest
		if err := commons.DecodeJSON(r, &req); err != nil {
			commons.WriteError(w, logger, traceID, err)
			return
		}
		if err := applySelection(p.Cart(), req); err != nil {
			commons.WriteError(w, logger, traceID, err)
			return
		}
		commons.WriteJSON(w, logger, http.StatusOK, p.Cart().Snapshot())
	})
}

// applySelection builds every choice first and only then applies them
// together, so a rejected request leaves the cart as it was.
func applySelection(s *cart.Store, req selectionRequest) error {
	if req.TipPercentage != nil && req.CustomTip != nil {
		return apperrors.NewValidationError("choose either a tip percentage or a custom tip", apperrors.ValidationDetail{
			Field:   "customTip",
			Message: "tipPercentage and customTip are mutually exclusive",
		})
	}
	if req.DonationAmount != nil && req.CustomDonation != nil {
		return apperrors.NewValidationError("choose either a fixed or a custom donation", apperrors.ValidationDetail{
			Field:   "customDonation",
			Message: "donationAmount and customDonation are mutually exclusive",
		})
	}

	sel := cart.Selection{Coupon: req.CouponCode}

	var (
		tip pricing.TipSelection
		err error
	)
	switch {
	case req.ClearTip:
		tip = pricing.NoTip()
	case req.TipPercentage != nil:
		tip, err = pricing.TipPercentage(*req.TipPercentage)
	case req.CustomTip != nil:
		tip, err = pricing.CustomTip(*req.CustomTip)
	}
	if err != nil {
		return err
	}
	if req.ClearTip || req.TipPercentage != nil || req.CustomTip != nil {
		sel.Tip = &tip
	}

	var donation pricing.DonationSelection
	switch {
	case req.ClearDonation:
		donation = pricing.NoDonation()
	case req.DonationAmount != nil:
		donation, err = pricing.FixedDonation(*req.DonationAmount)
	case req.CustomDonation != nil:
		donation, err = pricing.CustomDonation(*req.CustomDonation)
	}
	if err != nil {
		return err
	}
	if req.ClearDonation || req.DonationAmount != nil || req.CustomDonation != nil {
		sel.Donation = &donation
	}

	s.ApplySelection(sel)
	return nil
}

func (c *TableController) Prepare(w http.ResponseWriter, r *http.Request) {
	c.withPanel(w, r, func(p TablePanel, traceID string, logger *zap.Logger) {
		res, err := p.PrepareOrder(r.Context())
		if err != nil {
			commons.WriteError(w, logger, traceID, err)
			return
		}

		status := http.StatusOK
		if res.Created {
			status = http.StatusCreated
		}
		commons.WriteJSON(w, logger, status, prepareResponse{
			TraceID: traceID,
			Created: res.Created,
			Order:   res.Order,
			Cart:    p.Cart().Snapshot(),
		})
	})
}

func (c *TableController) RequestBill(w http.ResponseWriter, r *http.Request) {
	c.withPanel(w, r, func(p TablePanel, traceID string, logger *zap.Logger) {
		req := billRequest{RequestedBy: domain.RequestedByCustomer}
		if r.ContentLength != 0 {
			if err := commons.DecodeJSON(r, &req); err != nil {
				commons.WriteError(w, logger, traceID, err)
				return
			}
		}

		bill, err := p.RequestBill(r.Context(), req.RequestedBy)
		if err != nil {
			commons.WriteError(w, logger, traceID, err)
			return
		}
		commons.WriteJSON(w, logger, http.StatusCreated, bill)
	})
}

func (c *TableController) withPanel(w http.ResponseWriter, r *http.Request, fn func(p TablePanel, traceID string, logger *zap.Logger)) {
	traceID, logger := commons.Trace(c.logger)

	table, err := commons.TableParam(r)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	fn(c.panels(table), traceID, logger.With(zap.Int("tableNumber", table)))
}
