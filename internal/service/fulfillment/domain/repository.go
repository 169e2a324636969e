// internal/service/fulfillment/domain/repository.go
package domain

import (
	"context"
	"time"
)

// 以下接口位于领域层，由基础设施层实现。
// 查不到记录时返回 KindNotFound 的 *Error。

// OrderRepository 订单由下单流程维护，这里只读订单并回写状态
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status OrderStatus) error
}

// WarehouseRepository 仓库与库存
type WarehouseRepository interface {
	FindByID(ctx context.Context, id string) (*Warehouse, error)
	// ListShippable 启用且已注册揽收点的仓库，主仓优先，再按编码排序
	ListShippable(ctx context.Context) ([]*Warehouse, error)
	// AvailableStock 仓库下所有库位的可用库存之和，key 为 variantID
	AvailableStock(ctx context.Context, warehouseID string, variantIDs []string) (map[string]int, error)
	// SetExternalPickup 只在尚未回写时写入，返回是否真的写入
	SetExternalPickup(ctx context.Context, id, pickupID, pickupCode string) (bool, error)
}

// FulfillmentRepository 发货单
type FulfillmentRepository interface {
	// Create 同一订单已存在活跃发货单时返回 KindConflict
	Create(ctx context.Context, f *Fulfillment) error
	Update(ctx context.Context, f *Fulfillment) error
	FindByID(ctx context.Context, id string) (*Fulfillment, error)
	// FindByIDForUpdate 在事务内加行锁读取
	FindByIDForUpdate(ctx context.Context, id string) (*Fulfillment, error)
	FindActiveByOrder(ctx context.Context, orderID string) (*Fulfillment, error)
	ListByOrder(ctx context.Context, orderID string) ([]*Fulfillment, error)
	FindByAWB(ctx context.Context, awb string) (*Fulfillment, error)
	FindByShipmentID(ctx context.Context, shipmentID string) (*Fulfillment, error)
	FindByExternalOrderID(ctx context.Context, externalOrderID string) (*Fulfillment, error)
}

// TrackingEventRepository 物流轨迹
type TrackingEventRepository interface {
	// ExistsNear 是否已有同一状态且时间差在 window 内的事件
	ExistsNear(ctx context.Context, fulfillmentID string, status Status, at time.Time, window time.Duration) (bool, error)
	// Insert 命中唯一约束时返回 (false, nil)
	Insert(ctx context.Context, e *TrackingEvent) (bool, error)
	ListByFulfillment(ctx context.Context, fulfillmentID string) ([]*TrackingEvent, error)
}

// Transactor 在同一个数据库事务里执行 fn，仓储通过 ctx 取到事务
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
