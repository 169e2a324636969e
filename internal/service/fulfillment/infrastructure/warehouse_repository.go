package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

type GormWarehouseRepository struct {
	db *gorm.DB
}

func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

func (r *GormWarehouseRepository) FindByID(ctx context.Context, id string) (*domain.Warehouse, error) {
	var m WarehouseModel
	if err := conn(ctx, r.db).Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.E(domain.KindNotFound, "FindWarehouse", "warehouse %s not found", id)
		}
		return nil, errors.Wrap(err, "find warehouse")
	}
	return toDomainWarehouse(&m), nil
}

// ListShippable 主仓优先，其次按编码，保证选择结果确定
func (r *GormWarehouseRepository) ListShippable(ctx context.Context) ([]*domain.Warehouse, error) {
	var ms []WarehouseModel
	err := conn(ctx, r.db).
		Where("is_active = ? AND external_pickup_code <> ''", true).
		Order("is_primary DESC").Order("code ASC").Order("id ASC").
		Find(&ms).Error
	if err != nil {
		return nil, errors.Wrap(err, "list shippable warehouses")
	}
	out := make([]*domain.Warehouse, 0, len(ms))
	for i := range ms {
		out = append(out, toDomainWarehouse(&ms[i]))
	}
	return out, nil
}

type stockRow struct {
	VariantID string
	Available int
}

func (r *GormWarehouseRepository) AvailableStock(ctx context.Context, warehouseID string, variantIDs []string) (map[string]int, error) {
	out := make(map[string]int, len(variantIDs))
	if len(variantIDs) == 0 {
		return out, nil
	}
	var rows []stockRow
	err := conn(ctx, r.db).Table("inventory_levels AS il").
		Select("il.variant_id, SUM(il.on_hand - il.reserved) AS available").
		Joins("JOIN warehouse_locations wl ON wl.id = il.location_id").
		Where("wl.warehouse_id = ? AND il.variant_id IN ?", warehouseID, variantIDs).
		Group("il.variant_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum available stock")
	}
	for _, row := range rows {
		out[row.VariantID] = row.Available
	}
	return out, nil
}

// SetExternalPickup 条件更新，已回写过的仓库不会被覆盖
func (r *GormWarehouseRepository) SetExternalPickup(ctx context.Context, id, pickupID, pickupCode string) (bool, error) {
	db := conn(ctx, r.db)
	res := db.Model(&WarehouseModel{}).
		Where("id = ? AND external_pickup_code = '' AND external_pickup_id = ''", id).
		Updates(map[string]any{
			"external_pickup_id":   pickupID,
			"external_pickup_code": pickupCode,
		})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "set external pickup")
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	var n int64
	if err := db.Model(&WarehouseModel{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, errors.Wrap(err, "check warehouse")
	}
	if n == 0 {
		return false, domain.E(domain.KindNotFound, "SetExternalPickup", "warehouse %s not found", id)
	}
	return false, nil
}
