package saga

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
)

// 发货流水线的步骤名，失败时写入 Fulfillment.FailedStep
const (
	StepResolveWarehouse = "resolve_warehouse"
	StepPackage          = "package"
	StepPersistPending   = "persist_pending"
	StepCarrierOrder     = "carrier_order"
	StepAWB              = "awb"
	StepPickup           = "pickup"
	StepLabel            = "label"
	StepFinalize         = "finalize"
)

const op = "CreateShipment"

// WarehouseSelector 自动选仓
type WarehouseSelector interface {
	Select(ctx context.Context, items []domain.OrderItem, postcode string, cod bool) (*domain.Warehouse, error)
}

// ShipmentContext 在流水线中传递的上下文数据
type ShipmentContext struct {
	Ctx    context.Context
	Tracer trace.Tracer
	Now    func() time.Time

	// 入参
	Order       *domain.Order
	WarehouseID string // 调用方指定的仓库，为空时自动选择
	CourierID   string
	Overrides   domain.DimensionOverrides
	Defaults    domain.PackageDefaults

	// 依赖
	Carrier      port.CarrierGateway
	Selector     WarehouseSelector
	Warehouses   domain.WarehouseRepository
	Orders       domain.OrderRepository
	Fulfillments domain.FulfillmentRepository
	Tx           domain.Transactor

	// 各步骤的产出
	Warehouse    *domain.Warehouse
	Package      domain.PackageDimensions
	Fulfillment  *domain.Fulfillment // persist_pending 之后不为空
	CarrierOrder *port.CreateOrderResult
	AWB          *port.AWBResult
	Pickup       *port.PickupResult
	LabelURL     string
}

func (c *ShipmentContext) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Handler 责任链中的一个步骤
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(sc *ShipmentContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(sc *ShipmentContext) error {
	if h.next != nil {
		return h.next.Handle(sc)
	}
	return nil
}

// BuildChain 按固定顺序组装发货流水线
func BuildChain() Handler {
	head := new(ResolveWarehouseHandler)
	head.SetNext(new(PackageHandler)).
		SetNext(new(PersistPendingHandler)).
		SetNext(new(CarrierOrderHandler)).
		SetNext(new(AWBHandler)).
		SetNext(new(PickupHandler)).
		SetNext(new(LabelHandler)).
		SetNext(new(FinalizeHandler))
	return head
}
