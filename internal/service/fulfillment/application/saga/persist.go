package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

// PersistPendingHandler 在调用承运商之前落库 PENDING 记录。
// 唯一索引冲突说明同一订单的另一个请求已经抢先创建。
type PersistPendingHandler struct {
	NextHandler
}

func (h *PersistPendingHandler) Handle(sc *ShipmentContext) error {
	ctx, span := sc.Tracer.Start(sc.Ctx, "saga.PersistPending")
	defer span.End()

	f := domain.NewPendingFulfillment(sc.Order.ID, sc.Warehouse.ID, sc.Package, sc.now())
	if err := sc.Fulfillments.Create(ctx, f); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist pending fulfillment failed")
		return withStep(err, StepPersistPending)
	}
	sc.Fulfillment = f

	span.SetAttributes(attribute.String("fulfillment.id", f.ID))
	logger.Ctx(ctx).Info().Str("order_id", f.OrderID).Str("fulfillment_id", f.ID).
		Str("step", StepPersistPending).Msg("pending fulfillment persisted")
	return h.executeNext(sc)
}

// saveProgress 把承运商侧已经拿到的 id 先写回，后续步骤失败时仍可对账
func saveProgress(sc *ShipmentContext, step string) error {
	sc.Fulfillment.UpdatedAt = sc.now()
	if err := sc.Fulfillments.Update(sc.Ctx, sc.Fulfillment); err != nil {
		return domain.Internal(op, step, err)
	}
	return nil
}
