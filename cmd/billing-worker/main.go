// cmd/billing-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"vivero/internal/errs"
	"vivero/internal/pkg/bootstrap"
	"vivero/internal/pkg/config"
	"vivero/internal/pkg/database"
	"vivero/internal/pkg/httpclient"
	"vivero/internal/pkg/logger"
	"vivero/internal/pkg/metrics"
	"vivero/internal/pkg/mq"
	"vivero/internal/pkg/redisx"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	billapp "vivero/internal/service/billing/application"
	billdomain "vivero/internal/service/billing/domain"
	billinfra "vivero/internal/service/billing/infrastructure"
	billadapter "vivero/internal/service/billing/infrastructure/adapter"
	orderdomain "vivero/internal/service/order/domain"
	orderinfra "vivero/internal/service/order/infrastructure"
)

const (
	workerName        = "billing-worker"
	notificationTopic = "notification.dispatch"
	pdfRendererURL    = "http://pdf-renderer:8090/v1/render"
)

// worker 把一条 order.confirmed 事件变成一张佣金单和一张发票。
type worker struct {
	orders      orderdomain.OrderRepository
	commissions *billapp.CommissionService
	invoices    *billapp.InvoiceService
	rdb         *redis.Client
	tracer      trace.Tracer
}

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Service.Name == "" {
		cfg.Service.Name = workerName
	}
	logger.Init(cfg.Service.Name, cfg.Service.LogLevel)
	tracer := otel.Tracer(cfg.Service.Name)

	db, err := database.Open(cfg.MySQL.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	txm := database.NewGormTxManager(db)
	rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	httpClient := httpclient.NewClient(tracer)

	notificationWriter := mq.NewKafkaWriter(cfg.Kafka.Brokers, notificationTopic)
	notifier := billadapter.NewNotificationKafkaAdapter(notificationWriter)
	pdfRenderer := billadapter.NewPdfHTTPAdapter(httpClient, pdfRendererURL)

	commissionDefaults := billdomain.CommissionConfig{
		Type: billdomain.CommissionType(cfg.Billing.DefaultCommissionType),
		Rate: cfg.Billing.DefaultCommissionRate,
	}
	w := &worker{
		orders:      orderinfra.NewGormOrderRepository(db),
		commissions: billapp.NewCommissionService(billinfra.NewGormCommissionRepository(db), commissionDefaults, tracer),
		invoices: billapp.NewInvoiceService(billinfra.NewGormInvoiceRepository(db), pdfRenderer, notifier,
			cfg.Billing.TaxRatesByCategory, cfg.Billing.DefaultTaxRate, cfg.Billing.InvoiceDueDays,
			txm, tracer),
		rdb:    rdb,
		tracer: tracer,
	}

	reader := mq.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.OrderConfirmedTopic, cfg.Kafka.BillingGroup)

	consumeCtx, cancel := context.WithCancel(context.Background())
	go w.consume(consumeCtx, reader)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.Service.Name,
		Port:        cfg.Service.Port,
		// OnShutdown 逆序执行：先停消费，再关连接
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) { _ = rdb.Close() },
			func(ctx context.Context) { _ = notificationWriter.Close() },
			func(ctx context.Context) { _ = reader.Close() },
			func(ctx context.Context) { cancel() },
		},
	})
}

// consume 手动提交位点：处理成功才 commit，失败留给重投。
func (w *worker) consume(ctx context.Context, reader *kafka.Reader) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("failed to fetch message")
			continue
		}

		msgCtx := mq.ExtractTraceContext(ctx, &msg)
		if err := w.handle(msgCtx, msg.Value); err != nil {
			metrics.EventsConsumed.WithLabelValues(workerName, "error").Inc()
			logger.Ctx(msgCtx).Error().Err(err).Msg("failed to process confirmed order, leaving for redelivery")
			continue
		}
		metrics.EventsConsumed.WithLabelValues(workerName, "ok").Inc()
		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Msg("failed to commit offset")
		}
	}
}

func (w *worker) handle(ctx context.Context, payload []byte) error {
	ctx, span := w.tracer.Start(ctx, "billing.HandleOrderConfirmed")
	defer span.End()

	var event orderdomain.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		// 坏消息没有重试价值，记日志后吞掉
		logger.Ctx(ctx).Error().Err(err).Msg("dropping malformed order event")
		return nil
	}

	dedupKey := redisx.BillingEventKey(event.EventID)
	first, err := redisx.MarkProcessed(ctx, w.rdb, dedupKey, redisx.BillingDedupTTL)
	if err != nil {
		return err
	}
	if !first {
		logger.Ctx(ctx).Info().Str("event_id", event.EventID).Msg("duplicate event, skipping")
		return nil
	}

	if err := w.process(ctx, event); err != nil {
		// 处理失败要把幂等键还回去，否则重投会被当成重复
		if clearErr := redisx.ClearProcessed(ctx, w.rdb, dedupKey); clearErr != nil {
			logger.Ctx(ctx).Error().Err(clearErr).Str("event_id", event.EventID).Msg("failed to clear dedup key")
		}
		return err
	}
	return nil
}

func (w *worker) process(ctx context.Context, event orderdomain.Event) error {
	order, err := w.orders.FindByID(ctx, event.OrderID)
	if err != nil {
		return err
	}
	snapshot := toSnapshot(order)

	if _, err := w.commissions.CreateForOrder(ctx, snapshot, nil); err != nil {
		// (order, seller) 撞唯一索引说明上一轮已经算过
		if !errs.IsConflict(err) {
			return err
		}
		logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("commission already exists")
	}

	result, err := w.invoices.Generate(ctx, snapshot, billapp.GenerateOptions{})
	if err != nil {
		if !errs.IsConflict(err) {
			return err
		}
		logger.Ctx(ctx).Info().Str("order_id", order.ID).Msg("invoice already exists")
		return nil
	}
	if _, err := w.invoices.Issue(ctx, result.Invoice.ID); err != nil {
		return err
	}
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("invoice_number", result.Invoice.Number).
		Bool("drift_detected", result.DriftDetected).
		Msg("billing follow-up completed")
	return nil
}

func toSnapshot(order *orderdomain.Order) billdomain.OrderSnapshot {
	lines := make([]billdomain.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, billdomain.OrderLine{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Qty:         item.Qty,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			TaxCategory: item.TaxCategory,
		})
	}
	return billdomain.OrderSnapshot{
		OrderID:      order.ID,
		OrderNumber:  order.Number,
		UserID:       order.UserID,
		SellerID:     order.SellerID,
		CustomerType: string(order.CustomerType),
		TaxID:        order.TaxID,
		Lines:        lines,
		Subtotal:     order.Totals.Subtotal,
		Discount:     order.Totals.Discount,
		Shipping:     order.Totals.Shipping,
		Total:        order.Totals.Total,
	}
}
