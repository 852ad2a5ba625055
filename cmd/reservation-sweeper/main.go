// cmd/reservation-sweeper/main.go
package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"vivero/internal/pkg/bootstrap"
	"vivero/internal/pkg/config"
	"vivero/internal/pkg/database"
	"vivero/internal/pkg/logger"
	deliveryapp "vivero/internal/service/delivery/application"
	deliveryinfra "vivero/internal/service/delivery/infrastructure"
	invapp "vivero/internal/service/inventory/application"
	invinfra "vivero/internal/service/inventory/infrastructure"
)

const (
	sweepInterval = time.Minute
	sweepBatch    = 200
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = "reservation-sweeper"
	}
	logger.Init(cfg.Service.Name, cfg.Service.LogLevel)
	tracer := otel.Tracer(cfg.Service.Name)

	db, err := database.Open(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	txm := database.NewGormTxManager(db)

	inventorySvc := invapp.NewService(
		invinfra.NewGormProductRepository(db),
		invinfra.NewGormReservationRepository(db),
		txm, tracer)
	deliverySvc := deliveryapp.NewService(
		deliveryinfra.NewGormSlotRepository(db),
		txm, cfg.Delivery.Holidays, tracer)

	sweepCtx, cancel := context.WithCancel(context.Background())
	go run(sweepCtx, inventorySvc, deliverySvc)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.Service.Name,
		Port:        cfg.Service.Port,
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) { cancel() },
		},
	})
}

// run 周期性清扫过期的库存预占与档期占用。两类清扫互不依赖，
// 并行执行，任何一边失败只记日志，下个周期重来。
func run(ctx context.Context, inventory *invapp.Service, delivery *deliveryapp.Service) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, inventory, delivery)
		}
	}
}

func sweepOnce(ctx context.Context, inventory *invapp.Service, delivery *deliveryapp.Service) {
	now := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		released, err := inventory.SweepExpired(gctx, now, sweepBatch)
		if err != nil {
			return err
		}
		if released > 0 {
			logger.Ctx(gctx).Info().Int("released", released).Msg("released expired stock reservations")
		}
		return nil
	})
	g.Go(func() error {
		released, err := delivery.SweepExpired(gctx, now, sweepBatch)
		if err != nil {
			return err
		}
		if released > 0 {
			logger.Ctx(gctx).Info().Int("released", released).Msg("released expired slot holds")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("sweep cycle failed")
	}
}
