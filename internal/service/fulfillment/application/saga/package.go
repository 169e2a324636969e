package saga

import (
	"go.opentelemetry.io/otel/attribute"
)

// PackageHandler 按件数计算包裹重量和尺寸
type PackageHandler struct {
	NextHandler
}

func (h *PackageHandler) Handle(sc *ShipmentContext) error {
	_, span := sc.Tracer.Start(sc.Ctx, "saga.Package")
	defer span.End()

	sc.Package = sc.Defaults.Compute(sc.Order.TotalQuantity(), sc.Overrides)
	span.SetAttributes(
		attribute.Float64("package.weight_kg", sc.Package.WeightKg),
		attribute.Float64("package.height_cm", sc.Package.HeightCm),
	)
	return h.executeNext(sc)
}
