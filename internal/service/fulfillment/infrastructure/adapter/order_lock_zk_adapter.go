package adapter

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/zookeeper"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
)

// OrderLockZkAdapter 用 ZooKeeper 临时顺序节点实现订单级互斥
type OrderLockZkAdapter struct {
	conn *zookeeper.Conn
}

func NewOrderLockZkAdapter(conn *zookeeper.Conn) *OrderLockZkAdapter {
	return &OrderLockZkAdapter{conn: conn}
}

func (a *OrderLockZkAdapter) Lock(ctx context.Context, orderID string) (func(), error) {
	lock, err := zookeeper.NewDistributedLock(a.conn, "shipment-order-"+orderID)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			log.Warn().Err(err).Str("order_id", orderID).Msg("release order lock failed")
		}
	}, nil
}

// NoopOrderLocker 未配置 zookeeper 时使用，并发保护只依赖唯一索引
type NoopOrderLocker struct{}

func (NoopOrderLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

var (
	_ port.OrderLocker = (*OrderLockZkAdapter)(nil)
	_ port.OrderLocker = NoopOrderLocker{}
)
