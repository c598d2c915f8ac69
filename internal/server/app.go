package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"masapp/internal/billing"
	"masapp/internal/cart"
	"masapp/internal/notification"
	"masapp/internal/order"
	"masapp/internal/panel"
	panelcontroller "masapp/internal/panel/controller"
	"masapp/internal/payment"
	"masapp/internal/pricing"
	"masapp/internal/servicecall"
	"masapp/internal/signalbus"
)

// App is the assembled service over one bus.
type App struct {
	Handler http.Handler
	Panels  *panel.Registry
}

// NewApp wires every component onto bus. A panel watches the bus only while
// its table has an order in the kitchen; Panels.Close stops what is left.
func NewApp(ctx context.Context, bus *signalbus.Bus, calculator *pricing.Calculator, pollInterval time.Duration, logger *zap.Logger) *App {
	notifications := notification.NewChannel(bus, logger)
	calls := servicecall.NewService(bus, logger)
	orders := order.NewModule(bus, notifications, logger)
	bills := billing.NewWorkflow(bus, notifications, calls, logger)
	ledger := payment.NewLedger(bus, orders.Coordinator, notifications, logger)

	panels := panel.NewRegistry(ctx, cart.NewRegistry(calculator), orders.Coordinator, bills, notifications, bus, pollInterval, logger)

	router := NewRouter(Controllers{
		Tables: panelcontroller.NewTableController(func(table int) panelcontroller.TablePanel {
			return panels.ForTable(table)
		}, panels.Snapshot, logger),
		Orders:   orders.Controller,
		Payments: payment.NewController(ledger, logger),
		Calls:    servicecall.NewController(calls, logger),
		Bills:    billing.NewController(bills, logger),
	}, logger)

	return &App{Handler: router, Panels: panels}
}
