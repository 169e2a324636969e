package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID 订单行的名称、SKU 取自商品和规格表
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	db := conn(ctx, r.db)
	var m OrderModel
	if err := db.Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.E(domain.KindNotFound, "FindOrder", "order %s not found", id)
		}
		return nil, errors.Wrap(err, "find order")
	}

	var rows []orderItemRow
	err := db.Table("order_items AS oi").
		Select("oi.variant_id, p.name AS product_name, v.name AS variant_name, v.sku, oi.quantity, oi.price").
		Joins("LEFT JOIN product_variants v ON v.id = oi.variant_id").
		Joins("LEFT JOIN products p ON p.id = v.product_id").
		Where("oi.order_id = ?", id).
		Order("oi.id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load order items")
	}
	return toDomainOrder(&m, rows), nil
}

func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	res := conn(ctx, r.db).Model(&OrderModel{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return errors.Wrap(res.Error, "update order status")
	}
	if res.RowsAffected == 0 {
		// 状态未变化时 MySQL 返回 0 行，需要再确认订单是否存在
		var n int64
		if err := conn(ctx, r.db).Model(&OrderModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return errors.Wrap(err, "check order")
		}
		if n == 0 {
			return domain.E(domain.KindNotFound, "UpdateOrderStatus", "order %s not found", id)
		}
	}
	return nil
}
