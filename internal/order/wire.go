package order

import (
	"go.uber.org/zap"

	"masapp/internal/order/controller"
	"masapp/internal/order/repository"
	"masapp/internal/order/usecase"
	"masapp/internal/signalbus"
)

type Module struct {
	Coordinator *usecase.Coordinator
	Controller  *controller.OrderController
}

func NewModule(bus *signalbus.Bus, notifier usecase.NotificationPublisher, logger *zap.Logger) *Module {
	repo := repository.NewBusOrderRepository(bus)
	coordinator := usecase.NewCoordinator(repo, notifier, logger)

	return &Module{
		Coordinator: coordinator,
		Controller:  controller.NewOrderController(coordinator, logger),
	}
}
