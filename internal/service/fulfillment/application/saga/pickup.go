package saga

import (
	"go.opentelemetry.io/otel/codes"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

type PickupHandler struct {
	NextHandler
}

func (h *PickupHandler) Handle(sc *ShipmentContext) error {
	ctx, span := sc.Tracer.Start(sc.Ctx, "saga.GeneratePickup")
	defer span.End()

	res, err := sc.Carrier.GeneratePickup(ctx, sc.CarrierOrder.ShipmentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pickup request failed")
		return domain.CarrierFailure(op, StepPickup, err)
	}
	sc.Pickup = res
	sc.Fulfillment.PickupScheduledAt = res.ScheduledAt

	logger.Ctx(ctx).Info().Str("order_id", sc.Order.ID).Str("fulfillment_id", sc.Fulfillment.ID).
		Str("step", StepPickup).Msg("pickup requested")
	return h.executeNext(sc)
}

type LabelHandler struct {
	NextHandler
}

func (h *LabelHandler) Handle(sc *ShipmentContext) error {
	ctx, span := sc.Tracer.Start(sc.Ctx, "saga.GenerateLabel")
	defer span.End()

	url, err := sc.Carrier.GenerateLabel(ctx, sc.CarrierOrder.ShipmentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "label generation failed")
		return domain.CarrierFailure(op, StepLabel, err)
	}
	sc.LabelURL = url

	logger.Ctx(ctx).Info().Str("order_id", sc.Order.ID).Str("fulfillment_id", sc.Fulfillment.ID).
		Str("step", StepLabel).Msg("label generated")
	return h.executeNext(sc)
}
