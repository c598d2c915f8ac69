package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"masapp/internal/config"
	"masapp/internal/infrastructure/logger"
	"masapp/internal/infrastructure/mysql"
	"masapp/internal/infrastructure/rabbitmq"
	"masapp/internal/pricing"
	"masapp/internal/server"
	"masapp/internal/signalbus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, "masapp")
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db := newStore(cfg, zapLogger)
	if db != nil {
		defer db.Close()
	}

	opts := []signalbus.Option{signalbus.WithMaxAttempts(cfg.Bus.MaxWriteAttempts)}

	var nudger *rabbitmq.Nudger
	if cfg.Broker.URL != "" {
		nudger, err = rabbitmq.Dial(cfg.Broker.URL, cfg.Broker.Exchange, zapLogger)
		if err != nil {
			zapLogger.Fatal("connecting to broker", zap.Error(err))
		}
		defer nudger.Close()
		opts = append(opts, signalbus.WithNudger(nudger))
		zapLogger.Info("bus nudges enabled", zap.String("exchange", cfg.Broker.Exchange))
	}

	bus := signalbus.New(store, zapLogger, opts...)

	if nudger != nil {
		go func() {
			if err := nudger.Listen(ctx, bus.Wake); err != nil {
				zapLogger.Error("nudge listener stopped", zap.Error(err))
			}
		}()
	}

	run(ctx, cfg, bus, zapLogger)
}

func newStore(cfg *config.Config, zapLogger *zap.Logger) (signalbus.Store, *sql.DB) {
	if cfg.Bus.Backend != config.BusBackendMySQL {
		zapLogger.Info("using in-memory signal bus")
		return signalbus.NewMemoryStore(), nil
	}

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	zapLogger.Info("database connected")

	if err := mysql.RunMigrations(db, zapLogger); err != nil {
		zapLogger.Fatal("running migrations", zap.Error(err))
	}
	return signalbus.NewMySQLStore(db), db
}

func run(ctx context.Context, cfg *config.Config, bus *signalbus.Bus, zapLogger *zap.Logger) {
	coupons := pricing.DefaultCouponCatalog()
	if cfg.Pricing.CouponFile != "" {
		loaded, err := pricing.LoadCouponCatalog(cfg.Pricing.CouponFile)
		if err != nil {
			zapLogger.Fatal("loading coupon catalog", zap.String("path", cfg.Pricing.CouponFile), zap.Error(err))
		}
		coupons = loaded
	}

	app := server.NewApp(ctx, bus, pricing.NewCalculator(coupons), cfg.Bus.PollInterval, zapLogger)
	defer app.Panels.Close()

	srv := server.New(cfg.Server, app.Handler, zapLogger)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("received shutdown signal")

	if err := srv.Shutdown(context.Background()); err != nil {
		zapLogger.Error("server shutdown failed", zap.Error(err))
		return
	}

	zapLogger.Info("server stopped gracefully")
}
