package infrastructure

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

type GormFulfillmentRepository struct {
	db *gorm.DB
}

func NewGormFulfillmentRepository(db *gorm.DB) *GormFulfillmentRepository {
	return &GormFulfillmentRepository{db: db}
}

// Create 违反 uniq_active_order 时返回 KindConflict
func (r *GormFulfillmentRepository) Create(ctx context.Context, f *domain.Fulfillment) error {
	m := fromDomainFulfillment(f)
	if err := conn(ctx, r.db).Create(m).Error; err != nil {
		if isDuplicateKey(err) {
			return &domain.Error{
				Kind:    domain.KindConflict,
				Op:      "CreateFulfillment",
				Message: "an active fulfillment already exists for order " + f.OrderID,
				Err:     err,
			}
		}
		return errors.Wrap(err, "create fulfillment")
	}
	f.CreatedAt, f.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *GormFulfillmentRepository) Update(ctx context.Context, f *domain.Fulfillment) error {
	m := fromDomainFulfillment(f)
	res := conn(ctx, r.db).Model(&FulfillmentModel{}).Where("id = ?", f.ID).Select("*").Omit("id", "created_at").Updates(m)
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return &domain.Error{Kind: domain.KindConflict, Op: "UpdateFulfillment", Message: "an active fulfillment already exists for order " + f.OrderID, Err: res.Error}
		}
		return errors.Wrap(res.Error, "update fulfillment")
	}
	if res.RowsAffected == 0 {
		// MySQL 在值未变化时也会返回 0 行
		var n int64
		if err := conn(ctx, r.db).Model(&FulfillmentModel{}).Where("id = ?", f.ID).Count(&n).Error; err != nil {
			return errors.Wrap(err, "check fulfillment")
		}
		if n == 0 {
			return domain.E(domain.KindNotFound, "UpdateFulfillment", "fulfillment %s not found", f.ID)
		}
	}
	f.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *GormFulfillmentRepository) FindByID(ctx context.Context, id string) (*domain.Fulfillment, error) {
	return r.findOne(ctx, conn(ctx, r.db).Where("id = ?", id), "id", id)
}

func (r *GormFulfillmentRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Fulfillment, error) {
	return r.findOne(ctx, forUpdate(conn(ctx, r.db)).Where("id = ?", id), "id", id)
}

func (r *GormFulfillmentRepository) FindActiveByOrder(ctx context.Context, orderID string) (*domain.Fulfillment, error) {
	return r.findOne(ctx, conn(ctx, r.db).Where("active_order_id = ?", orderID), "order", orderID)
}

func (r *GormFulfillmentRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.Fulfillment, error) {
	var ms []FulfillmentModel
	if err := conn(ctx, r.db).Where("order_id = ?", orderID).Order("created_at DESC").Find(&ms).Error; err != nil {
		return nil, errors.Wrap(err, "list fulfillments")
	}
	out := make([]*domain.Fulfillment, 0, len(ms))
	for i := range ms {
		out = append(out, toDomainFulfillment(&ms[i]))
	}
	return out, nil
}

func (r *GormFulfillmentRepository) FindByAWB(ctx context.Context, awb string) (*domain.Fulfillment, error) {
	return r.findLatestBy(ctx, "awb_code", awb)
}

func (r *GormFulfillmentRepository) FindByShipmentID(ctx context.Context, shipmentID string) (*domain.Fulfillment, error) {
	return r.findLatestBy(ctx, "external_shipment_id", shipmentID)
}

func (r *GormFulfillmentRepository) FindByExternalOrderID(ctx context.Context, externalOrderID string) (*domain.Fulfillment, error) {
	return r.findLatestBy(ctx, "external_order_id", externalOrderID)
}

// findLatestBy 同一个外部 id 理论上只对应一条记录，重复时取最新的
func (r *GormFulfillmentRepository) findLatestBy(ctx context.Context, column, value string) (*domain.Fulfillment, error) {
	if value == "" {
		return nil, domain.E(domain.KindNotFound, "FindFulfillment", "empty %s", column)
	}
	q := forUpdate(conn(ctx, r.db)).Where(column+" = ?", value).Order("created_at DESC")
	return r.findOne(ctx, q, column, value)
}

func (r *GormFulfillmentRepository) findOne(_ context.Context, q *gorm.DB, key, value string) (*domain.Fulfillment, error) {
	var m FulfillmentModel
	if err := q.Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.E(domain.KindNotFound, "FindFulfillment", "fulfillment with %s %s not found", key, value)
		}
		return nil, errors.Wrap(err, "find fulfillment")
	}
	return toDomainFulfillment(&m), nil
}
