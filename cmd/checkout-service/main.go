// cmd/checkout-service/main.go
package main

import (
	"context"
	"log"
	"os"

	"go.opentelemetry.io/otel"

	"vivero/internal/pkg/bootstrap"
	"vivero/internal/pkg/config"
	"vivero/internal/pkg/database"
	"vivero/internal/pkg/httpclient"
	"vivero/internal/pkg/logger"
	"vivero/internal/pkg/mq"
	"vivero/internal/pkg/redisx"

	billadapter "vivero/internal/service/billing/infrastructure/adapter"
	cartapp "vivero/internal/service/cart/application"
	cartinfra "vivero/internal/service/cart/infrastructure"
	checkoutapp "vivero/internal/service/checkout/application"
	checkoutinfra "vivero/internal/service/checkout/infrastructure"
	checkoutadapter "vivero/internal/service/checkout/infrastructure/adapter"
	checkoutifaces "vivero/internal/service/checkout/interfaces"
	deliveryapp "vivero/internal/service/delivery/application"
	deliveryinfra "vivero/internal/service/delivery/infrastructure"
	invapp "vivero/internal/service/inventory/application"
	invinfra "vivero/internal/service/inventory/infrastructure"
	orderapp "vivero/internal/service/order/application"
	orderinfra "vivero/internal/service/order/infrastructure"
	orderadapter "vivero/internal/service/order/infrastructure/adapter"
	orderifaces "vivero/internal/service/order/interfaces"
	promoapp "vivero/internal/service/promotion/application"
	promoinfra "vivero/internal/service/promotion/infrastructure"
	promorule "vivero/internal/service/promotion/infrastructure/rule"

	billinfra "vivero/internal/service/billing/infrastructure"
)

const notificationTopic = "notification.dispatch"

// main 组装根：创建并装配所有依赖，然后交给 bootstrap 启动。
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = "checkout-service"
	}
	logger.Init(cfg.Service.Name, cfg.Service.LogLevel)
	tracer := otel.Tracer(cfg.Service.Name)

	db, err := database.Open(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(
		&invinfra.ProductModel{}, &invinfra.StockReservationModel{},
		&cartinfra.CartModel{}, &cartinfra.CartItemModel{},
		&deliveryinfra.DeliveryWindowModel{}, &deliveryinfra.DeliverySlotModel{}, &deliveryinfra.SlotReservationModel{},
		&promoinfra.CouponModel{}, &promoinfra.CouponUsageModel{},
		&orderinfra.OrderModel{}, &orderinfra.OrderItemModel{}, &orderinfra.OrderCouponModel{}, &orderinfra.OrderHistoryModel{},
		&billinfra.CommissionModel{}, &billinfra.InvoiceModel{}, &billinfra.InvoiceLineModel{},
		&checkoutinfra.PaymentModel{},
	); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	txm := database.NewGormTxManager(db)

	rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	httpClient := httpclient.NewClient(tracer)

	confirmedWriter := mq.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.OrderConfirmedTopic)
	eventsWriter := mq.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.OrderEventsTopic)
	notificationWriter := mq.NewKafkaWriter(cfg.Kafka.Brokers, notificationTopic)

	// 库存
	productRepo := invinfra.NewGormProductRepository(db)
	reservationRepo := invinfra.NewGormReservationRepository(db)
	inventorySvc := invapp.NewService(productRepo, reservationRepo, txm, tracer)

	// 购物车
	cartRepo := cartinfra.NewGormCartRepository(db)
	cartValidator := cartapp.NewValidator(cartRepo, cartinfra.NewCatalogAdapter(productRepo), tracer)

	// 配送档期
	slotRepo := deliveryinfra.NewGormSlotRepository(db)
	deliverySvc := deliveryapp.NewService(slotRepo, txm, cfg.Delivery.Holidays, tracer)

	// 优惠券
	ruleEngine, err := promorule.NewCelEngine()
	if err != nil {
		log.Fatalf("failed to initialize rule engine: %v", err)
	}
	couponResolver := promoapp.NewResolver(
		promoinfra.NewGormCouponRepository(db),
		promoinfra.NewGormUsageRepository(db),
		ruleEngine, tracer)

	// 订单
	orderRepo := orderinfra.NewGormOrderRepository(db)
	eventPublisher := orderinfra.NewKafkaEventPublisher(confirmedWriter, eventsWriter)
	orderSvc := orderapp.NewService(orderRepo, eventPublisher,
		orderadapter.NewInventoryAdapter(inventorySvc),
		orderadapter.NewDeliveryAdapter(deliverySvc),
		orderinfra.NewRedisStatusCache(rdb),
		txm, tracer)

	// 结算
	notifier := billadapter.NewNotificationKafkaAdapter(notificationWriter)
	checkoutSvc := checkoutapp.NewService(checkoutapp.Deps{
		Validator: cartValidator,
		Carts:     cartRepo,
		Coupons:   couponResolver,
		Slots:     deliverySvc,
		Stock:     inventorySvc,
		Orders:    checkoutadapter.NewOrderWriterAdapter(orderSvc, orderRepo),
		Payments:  checkoutinfra.NewGormPaymentRepository(db),

		Processor: checkoutadapter.NewPaymentHTTPAdapter(httpClient, cfg.Checkout.PaymentGatewayURL),
		Notifier:  notifier,
		Publisher: eventPublisher,

		TxManager: txm,
		Tracer:    tracer,

		WholesaleMinSubtotal: cfg.Checkout.WholesaleMinSubtotal,
		PaymentFeeRate:       cfg.Checkout.PaymentFeeRate,
		SlotHoldTTL:          cfg.Checkout.SlotHoldTTL,
	})

	orderHandler := orderifaces.NewHTTPHandler(orderSvc, tracer)
	checkoutHandler := checkoutifaces.NewHTTPHandler(checkoutSvc, tracer)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.Service.Name,
		Port:        cfg.Service.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			orderHandler.Register(appCtx.Mux)
			checkoutHandler.Register(appCtx.Mux)
		},
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) { _ = confirmedWriter.Close() },
			func(ctx context.Context) { _ = eventsWriter.Close() },
			func(ctx context.Context) { _ = notificationWriter.Close() },
			func(ctx context.Context) { _ = rdb.Close() },
		},
	})
}
