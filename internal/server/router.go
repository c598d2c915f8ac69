package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"masapp/internal/billing"
	"masapp/internal/commons"
	ordercontroller "masapp/internal/order/controller"
	panelcontroller "masapp/internal/panel/controller"
	"masapp/internal/payment"
	"masapp/internal/servicecall"
)

type Controllers struct {
	Tables   *panelcontroller.TableController
	Orders   *ordercontroller.OrderController
	Payments *payment.Controller
	Calls    *servicecall.Controller
	Bills    *billing.Controller
}

func NewRouter(c Controllers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		commons.WriteJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/tables/{table}", func(r chi.Router) {
		r.Get("/cart", c.Tables.GetCart)
		r.Post("/cart/items", c.Tables.AddItem)
		r.Patch("/cart/items/{itemId}", c.Tables.UpdateItem)
		r.Delete("/cart/items/{itemId}", c.Tables.RemoveItem)
		r.Put("/cart/selection", c.Tables.UpdateSelection)

		r.Post("/prepare", c.Tables.Prepare)
		r.Post("/bill", c.Tables.RequestBill)
		r.Post("/reconcile", c.Orders.Reconcile)

		r.Get("/balance", c.Payments.Balance)
		r.Get("/payments", c.Payments.History)
		r.Post("/payments", c.Payments.Record)
		r.Post("/settle", c.Payments.Settle)

		r.Post("/calls", c.Calls.Create)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", c.Orders.List)
		r.Get("/{orderId}", c.Orders.Get)
		r.Post("/{orderId}/ready", c.Orders.MarkReady)
		r.Post("/{orderId}/cancel", c.Orders.Cancel)
		r.Put("/{orderId}/items/{index}/status", c.Orders.SetItemStatus)
	})

	r.Get("/calls", c.Calls.Pending)
	r.Post("/calls/{callId}/resolve", c.Calls.Resolve)

	r.Get("/bills", c.Bills.Pending)
	r.Post("/bills/{billId}/acknowledge", c.Bills.Acknowledge)

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("requestId", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
