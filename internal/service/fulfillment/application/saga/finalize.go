package saga

import (
	"context"

	"go.opentelemetry.io/otel/codes"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

// TrackingURLPrefix 运单跟踪页面
const TrackingURLPrefix = "https://shiprocket.co/tracking/"

// FinalizeHandler 承运商链路全部成功后，在一个事务里更新发货单和订单
type FinalizeHandler struct {
	NextHandler
}

func (h *FinalizeHandler) Handle(sc *ShipmentContext) error {
	ctx, span := sc.Tracer.Start(sc.Ctx, "saga.Finalize")
	defer span.End()

	f := sc.Fulfillment
	f.LabelURL = sc.LabelURL
	if f.AWBCode != "" {
		f.TrackingURL = TrackingURLPrefix + f.AWBCode
	}
	f.MarkPickupScheduled(sc.now())

	err := sc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := sc.Fulfillments.Update(ctx, f); err != nil {
			return err
		}
		return sc.Orders.UpdateStatus(ctx, sc.Order.ID, domain.OrderProcessing)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize failed")
		return domain.Internal(op, StepFinalize, err)
	}

	logger.Ctx(ctx).Info().Str("order_id", sc.Order.ID).Str("fulfillment_id", f.ID).
		Str("step", StepFinalize).Str("awb", f.AWBCode).Msg("pickup scheduled")
	return h.executeNext(sc)
}
