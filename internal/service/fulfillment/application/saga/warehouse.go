package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

// ResolveWarehouseHandler 调用方指定仓库时只校验其已注册揽收点，否则交给选仓器
type ResolveWarehouseHandler struct {
	NextHandler
}

func (h *ResolveWarehouseHandler) Handle(sc *ShipmentContext) error {
	ctx, span := sc.Tracer.Start(sc.Ctx, "saga.ResolveWarehouse")
	defer span.End()

	var (
		w   *domain.Warehouse
		err error
	)
	if sc.WarehouseID != "" {
		w, err = sc.Warehouses.FindByID(ctx, sc.WarehouseID)
		if err == nil && !w.IsShippable() {
			err = domain.E(domain.KindValidation, op, "warehouse %s is inactive or not registered with the carrier", w.Code)
		}
	} else {
		addr := sc.Order.ShippingAddress
		w, err = sc.Selector.Select(ctx, sc.Order.Items, addr.PostalCode, !sc.Order.IsPrepaid())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve warehouse failed")
		return withStep(err, StepResolveWarehouse)
	}

	sc.Warehouse = w
	span.SetAttributes(attribute.String("warehouse.code", w.Code))
	logger.Ctx(ctx).Info().Str("order_id", sc.Order.ID).Str("step", StepResolveWarehouse).
		Str("warehouse", w.Code).Msg("warehouse resolved")
	return h.executeNext(sc)
}

// withStep 给已分类的错误补上步骤名，未分类的按内部错误处理
func withStep(err error, step string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		cp := *de
		cp.Op, cp.Step = op, step
		return &cp
	}
	return domain.Internal(op, step, err)
}
