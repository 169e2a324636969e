// internal/service/fulfillment/application/service.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/pkg/metrics"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/application/saga"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
)

// Dependencies 应用层所需的全部出站依赖
type Dependencies struct {
	Orders       domain.OrderRepository
	Warehouses   domain.WarehouseRepository
	Fulfillments domain.FulfillmentRepository
	Tracking     domain.TrackingEventRepository
	Tx           domain.Transactor
	Carrier      port.CarrierGateway
	Publisher    port.EventPublisher
	Locker       port.OrderLocker
	Tracer       trace.Tracer
}

// FulfillmentApplicationService 编排发货单的创建与查询
type FulfillmentApplicationService struct {
	deps     Dependencies
	selector *WarehouseSelector
	defaults domain.PackageDefaults
	now      func() time.Time
}

func NewFulfillmentApplicationService(deps Dependencies, selector *WarehouseSelector, defaults domain.PackageDefaults) *FulfillmentApplicationService {
	return &FulfillmentApplicationService{deps: deps, selector: selector, defaults: defaults, now: time.Now}
}

// CreateShipment 前置条件不满足时没有任何副作用；
// 承运商链路中途失败会留下 FAILED 记录，并把失败步骤带在错误里返回。
func (s *FulfillmentApplicationService) CreateShipment(ctx context.Context, req *CreateShipmentRequest) (*domain.Fulfillment, error) {
	ctx, span := s.deps.Tracer.Start(ctx, "app.CreateShipment")
	defer span.End()

	if err := req.Validate(); err != nil {
		metrics.Shipments.WithLabelValues("rejected").Inc()
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", req.OrderID))
	log := logger.Ctx(ctx).With().Str("order_id", req.OrderID).Logger()

	if s.deps.Locker != nil {
		unlock, err := s.deps.Locker.Lock(ctx, req.OrderID)
		if err != nil {
			// 锁只是辅助，唯一索引仍然兜底
			log.Warn().Err(err).Msg("order lock unavailable, relying on storage constraint")
		} else {
			defer unlock()
		}
	}

	order, err := s.checkPreconditions(ctx, req.OrderID)
	if err != nil {
		metrics.Shipments.WithLabelValues("rejected").Inc()
		span.RecordError(err)
		return nil, err
	}

	sc := &saga.ShipmentContext{
		Ctx:          ctx,
		Tracer:       s.deps.Tracer,
		Now:          s.now,
		Order:        order,
		WarehouseID:  req.WarehouseID,
		CourierID:    req.CourierID,
		Overrides:    req.Overrides(),
		Defaults:     s.defaults,
		Carrier:      s.deps.Carrier,
		Selector:     s.selector,
		Warehouses:   s.deps.Warehouses,
		Orders:       s.deps.Orders,
		Fulfillments: s.deps.Fulfillments,
		Tx:           s.deps.Tx,
	}

	if err := saga.BuildChain().Handle(sc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "shipment pipeline failed")
		log.Error().Err(err).Str("step", domain.StepOf(err)).Msg("shipment pipeline failed")
		return s.recordFailure(ctx, sc, req, err)
	}

	metrics.Shipments.WithLabelValues("created").Inc()
	s.publish(ctx, domain.NewFulfillmentEvent(domain.EventFulfillmentCreated, sc.Fulfillment, domain.StatusPending))
	log.Info().Str("fulfillment_id", sc.Fulfillment.ID).Str("awb", sc.Fulfillment.AWBCode).Msg("shipment created")
	return sc.Fulfillment, nil
}

func (s *FulfillmentApplicationService) checkPreconditions(ctx context.Context, orderID string) (*domain.Order, error) {
	const op = "CreateShipment"
	order, err := s.deps.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsFulfillable() {
		return nil, domain.E(domain.KindPrecondition, op, "order %s is %s, only CONFIRMED or PROCESSING orders can be shipped", order.ID, order.Status)
	}
	if order.ShippingAddress == nil || order.ShippingAddress.PostalCode == "" {
		return nil, domain.E(domain.KindPrecondition, op, "order %s has no shipping address", order.ID)
	}
	if len(order.Items) == 0 {
		return nil, domain.E(domain.KindPrecondition, op, "order %s has no items", order.ID)
	}
	active, err := s.deps.Fulfillments.FindActiveByOrder(ctx, order.ID)
	switch {
	case err == nil:
		return nil, domain.E(domain.KindConflict, op, "order %s already has active fulfillment %s (%s)", order.ID, active.ID, active.Status)
	case !domain.IsNotFound(err):
		return nil, err
	}
	return order, nil
}

// recordFailure 把失败写回发货单。写库失败只记日志，调用方拿到的始终是原始错误。
func (s *FulfillmentApplicationService) recordFailure(ctx context.Context, sc *saga.ShipmentContext, req *CreateShipmentRequest, cause error) (*domain.Fulfillment, error) {
	log := logger.Ctx(ctx).With().Str("order_id", sc.Order.ID).Logger()
	step := domain.StepOf(cause)
	// 请求被取消也要把失败落库
	saveCtx := context.WithoutCancel(ctx)

	var f *domain.Fulfillment
	switch {
	case sc.Fulfillment != nil:
		f = sc.Fulfillment
		f.MarkFailed(step, messageOf(cause), s.now())
		if err := s.deps.Fulfillments.Update(saveCtx, f); err != nil {
			log.Error().Err(err).Str("fulfillment_id", f.ID).Msg("CRITICAL: failed to persist FAILED fulfillment")
		}
	case step == saga.StepResolveWarehouse && req.WarehouseID == "" && domain.KindOf(cause) == domain.KindNotServiceable:
		// 没有可用仓库也留一条 FAILED 记录，便于运营排查
		f = domain.NewPendingFulfillment(sc.Order.ID, "", domain.PackageDimensions{}, s.now())
		f.MarkFailed(step, messageOf(cause), s.now())
		if err := s.deps.Fulfillments.Create(saveCtx, f); err != nil {
			log.Error().Err(err).Msg("failed to persist FAILED fulfillment")
			f = nil
		}
	}

	if f == nil {
		metrics.Shipments.WithLabelValues("rejected").Inc()
		return nil, cause
	}
	metrics.Shipments.WithLabelValues("failed").Inc()
	s.publish(saveCtx, domain.NewFulfillmentEvent(domain.EventFulfillmentFailed, f, domain.StatusPending))
	return f, cause
}

func messageOf(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

func (s *FulfillmentApplicationService) publish(ctx context.Context, ev domain.FulfillmentEvent) {
	if s.deps.Publisher == nil {
		return
	}
	if err := s.deps.Publisher.Publish(ctx, ev); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("fulfillment_id", ev.FulfillmentID).Str("type", string(ev.Type)).
			Msg("publish fulfillment event failed")
	}
}

// ListFulfillments 订单的全部发货单（含失败记录）及其物流轨迹，最新的在前
func (s *FulfillmentApplicationService) ListFulfillments(ctx context.Context, orderID string) ([]FulfillmentDTO, error) {
	ctx, span := s.deps.Tracer.Start(ctx, "app.ListFulfillments")
	defer span.End()

	if orderID == "" {
		return nil, domain.E(domain.KindValidation, "ListFulfillments", "order_id is required")
	}
	fs, err := s.deps.Fulfillments.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, domain.Internal("ListFulfillments", "", err)
	}
	out := make([]FulfillmentDTO, 0, len(fs))
	for _, f := range fs {
		dto := NewFulfillmentDTO(f)
		events, err := s.deps.Tracking.ListByFulfillment(ctx, f.ID)
		if err != nil {
			return nil, domain.Internal("ListFulfillments", "", err)
		}
		for _, e := range events {
			dto.Events = append(dto.Events, NewTrackingEventDTO(e))
		}
		out = append(out, dto)
	}
	return out, nil
}
