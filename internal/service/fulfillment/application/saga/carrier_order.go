package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/logger"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
)

const (
	paymentPrepaid = "Prepaid"
	paymentCOD     = "COD"
)

// CarrierOrderHandler 在承运商侧创建订单，拿到 shipment id
type CarrierOrderHandler struct {
	NextHandler
}

func (h *CarrierOrderHandler) Handle(sc *ShipmentContext) error {
	ctx, span := sc.Tracer.Start(sc.Ctx, "saga.CarrierOrder")
	defer span.End()

	res, err := sc.Carrier.CreateOrder(ctx, BuildCarrierOrder(sc.Order, sc.Warehouse, sc.Package))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "carrier order creation failed")
		return domain.CarrierFailure(op, StepCarrierOrder, err)
	}
	sc.CarrierOrder = res

	f := sc.Fulfillment
	f.ExternalOrderID = res.OrderID
	f.ExternalShipmentID = res.ShipmentID
	if res.AWBCode != "" {
		// 建单时承运商已分配运单号，直接采用
		sc.AWB = &port.AWBResult{AWBCode: res.AWBCode, CourierID: res.CourierID, CourierName: res.CourierName}
		f.AWBCode = res.AWBCode
		f.CourierID = res.CourierID
		f.CourierName = res.CourierName
	}
	if err := saveProgress(sc, StepCarrierOrder); err != nil {
		return err
	}

	span.SetAttributes(attribute.String("carrier.shipment_id", res.ShipmentID))
	logger.Ctx(ctx).Info().Str("order_id", sc.Order.ID).Str("fulfillment_id", f.ID).
		Str("step", StepCarrierOrder).Str("shipment_id", res.ShipmentID).Msg("carrier order created")
	return h.executeNext(sc)
}

// BuildCarrierOrder 账单地址缺省时沿用收货地址；有支付流水视为预付，否则货到付款
func BuildCarrierOrder(o *domain.Order, w *domain.Warehouse, pkg domain.PackageDimensions) port.CreateOrderRequest {
	req := port.CreateOrderRequest{
		OrderID:           o.ID,
		OrderDate:         o.CreatedAt,
		PickupLocation:    w.ExternalPickupCode,
		Shipping:          toPortAddress(o.ShippingAddress),
		Billing:           toPortAddress(o.Billing()),
		ShippingIsBilling: o.BillingAddress == nil,
		PaymentMethod:     paymentCOD,
		SubTotal:          o.SubTotal,
		WeightKg:          pkg.WeightKg,
		LengthCm:          pkg.LengthCm,
		BreadthCm:         pkg.BreadthCm,
		HeightCm:          pkg.HeightCm,
	}
	if o.IsPrepaid() {
		req.PaymentMethod = paymentPrepaid
	}
	var subTotal float64
	for _, it := range o.Items {
		name := it.ProductName
		if it.VariantName != "" {
			name += " - " + it.VariantName
		}
		sku := it.SKU
		if sku == "" {
			sku = it.VariantID
		}
		req.Items = append(req.Items, port.OrderLine{Name: name, SKU: sku, Units: it.Quantity, Price: it.Price})
		subTotal += it.Price * float64(it.Quantity)
	}
	if req.SubTotal == 0 {
		req.SubTotal = subTotal
	}
	return req
}

func toPortAddress(a *domain.Address) port.Address {
	if a == nil {
		return port.Address{}
	}
	return port.Address{
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Email:      a.Email,
		Phone:      a.Phone,
	}
}
