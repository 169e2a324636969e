package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

// AWBHandler 分配运单号，未指定快递公司时由承运商自动选择
type AWBHandler struct {
	NextHandler
}

func (h *AWBHandler) Handle(sc *ShipmentContext) error {
	ctx, span := sc.Tracer.Start(sc.Ctx, "saga.AssignAWB")
	defer span.End()
	log := logger.Ctx(ctx).With().Str("order_id", sc.Order.ID).Str("fulfillment_id", sc.Fulfillment.ID).
		Str("step", StepAWB).Logger()

	if sc.AWB != nil && sc.AWB.AWBCode != "" {
		log.Info().Str("awb", sc.AWB.AWBCode).Msg("awb already assigned at order creation")
		return h.executeNext(sc)
	}

	res, err := sc.Carrier.AssignAWB(ctx, sc.CarrierOrder.ShipmentID, sc.CourierID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "awb assignment failed")
		return domain.CarrierFailure(op, StepAWB, err)
	}
	sc.AWB = res

	f := sc.Fulfillment
	f.AWBCode = res.AWBCode
	f.CourierID = res.CourierID
	f.CourierName = res.CourierName
	if err := saveProgress(sc, StepAWB); err != nil {
		return err
	}

	span.SetAttributes(attribute.String("carrier.awb", res.AWBCode))
	log.Info().Str("awb", res.AWBCode).Str("courier", res.CourierName).Msg("awb assigned")
	return h.executeNext(sc)
}
