package port

import (
	"context"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

// EventPublisher 在事务提交之后发布发货单事件，失败只记录日志
type EventPublisher interface {
	Publish(ctx context.Context, event domain.FulfillmentEvent) error
}

// OrderLocker 跨实例的订单级互斥，只做辅助，唯一约束才是最终保证
type OrderLocker interface {
	Lock(ctx context.Context, orderID string) (unlock func(), err error)
}
