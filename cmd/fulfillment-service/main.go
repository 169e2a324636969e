// cmd/fulfillment-service/main.go
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/bootstrap"
	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/pkg/mq"
	"github.com/propranjan/radhagsareees-sub002/internal/pkg/redis"
	"github.com/propranjan/radhagsareees-sub002/internal/pkg/zookeeper"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/application"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/infrastructure"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/infrastructure/adapter"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/infrastructure/carrier"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/interfaces"
)

const serviceName = "fulfillment-service"

// main 函数是应用的"组装根" (Composition Root)
func main() {
	cfg := bootstrap.Init()
	logger.Init(serviceName, cfg.App.LogLevel)
	var shutdown []func(ctx context.Context)

	// 1. 数据库
	db, err := infrastructure.Open(cfg.Infra.MySQL.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if err := infrastructure.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	shutdown = append(shutdown, func(context.Context) {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	// 2. 承运商客户端，配置了 redis 时多实例共享 token
	var tokenStore carrier.TokenStore
	if addrs := bootstrap.SplitAddrs(cfg.Infra.Redis.Addrs); len(addrs) > 0 {
		rc, err := redis.NewClient(addrs)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect redis")
		}
		tokenStore = carrier.NewRedisTokenStore(rc)
		shutdown = append(shutdown, func(context.Context) { _ = rc.Close() })
	}
	carrierClient := carrier.New(carrier.Config{
		BaseURL:       cfg.Carrier.BaseURL,
		Email:         cfg.Carrier.Email,
		Password:      cfg.Carrier.Password,
		Token:         cfg.Carrier.Token,
		Timeout:       cfg.Carrier.Timeout,
		TokenTTL:      cfg.Carrier.TokenTTL,
		RefreshBuffer: cfg.Carrier.RefreshBuffer,
	}, tokenStore)

	// 3. 可选的 kafka 事件和 zookeeper 订单锁
	var publisher port.EventPublisher = adapter.NoopEventPublisher{}
	if brokers := bootstrap.SplitAddrs(cfg.Infra.Kafka.Brokers); len(brokers) > 0 {
		kp := adapter.NewEventKafkaAdapter(mq.NewKafkaWriter(brokers, cfg.Infra.Kafka.Topic))
		publisher = kp
		shutdown = append(shutdown, func(context.Context) { _ = kp.Close() })
	}
	var locker port.OrderLocker = adapter.NoopOrderLocker{}
	if servers := bootstrap.SplitAddrs(cfg.Infra.Zookeeper.Servers); len(servers) > 0 {
		zc, err := zookeeper.Connect(servers, 5*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect zookeeper")
		}
		locker = adapter.NewOrderLockZkAdapter(zc)
		shutdown = append(shutdown, func(context.Context) { zc.Close() })
	}

	// 4. 应用层
	tracer := otel.Tracer(serviceName)
	warehouses := infrastructure.NewGormWarehouseRepository(db)
	deps := application.Dependencies{
		Orders:       infrastructure.NewGormOrderRepository(db),
		Warehouses:   warehouses,
		Fulfillments: infrastructure.NewGormFulfillmentRepository(db),
		Tracking:     infrastructure.NewGormTrackingEventRepository(db),
		Tx:           infrastructure.NewTxManager(db),
		Carrier:      carrierClient,
		Publisher:    publisher,
		Locker:       locker,
		Tracer:       tracer,
	}
	sc := cfg.Shipment
	selector := application.NewWarehouseSelector(warehouses, carrierClient, sc.NominalWeightKg, tracer)
	shipments := application.NewFulfillmentApplicationService(deps, selector, domain.PackageDefaults{
		DefaultWeightKg: sc.DefaultWeightKg,
		WeightPerItemKg: sc.WeightPerItemKg,
		LengthCm:        sc.LengthCm,
		BreadthCm:       sc.BreadthCm,
		HeightBaseCm:    sc.HeightBaseCm,
		HeightPerPairCm: sc.HeightPerPairCm,
	})
	if cfg.Webhook.Secret == "" {
		log.Warn().Bool("allow_unauthenticated", cfg.Webhook.AllowUnauthenticated).Msg("webhook secret is not configured")
	}
	webhooks := application.NewWebhookService(application.WebhookConfig{
		Secret:               cfg.Webhook.Secret,
		AllowUnauthenticated: cfg.Webhook.AllowUnauthenticated,
	}, deps)
	syncer := application.NewWarehouseSyncService(warehouses, carrierClient, tracer)
	handler := interfaces.NewFulfillmentHandler(shipments, webhooks, syncer, tracer)

	// 5. 启动
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: shutdown,
	})
}
