package infrastructure

import (
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

func toDomainAddress(a AddressColumns) *domain.Address {
	return &domain.Address{
		Name:       a.Name,
		Phone:      a.Phone,
		Email:      a.Email,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// orderItemRow 订单行与商品、规格表联查的结果
type orderItemRow struct {
	VariantID   string
	ProductName string
	VariantName string
	SKU         string
	Quantity    int
	Price       float64
}

func toDomainOrder(m *OrderModel, rows []orderItemRow) *domain.Order {
	o := &domain.Order{
		ID:         m.ID,
		Status:     domain.OrderStatus(m.Status),
		PaymentRef: m.PaymentRef,
		SubTotal:   m.SubTotal,
		CreatedAt:  m.CreatedAt,
	}
	if m.Shipping.Line1 != "" {
		o.ShippingAddress = toDomainAddress(m.Shipping)
	}
	if m.Billing.Line1 != "" {
		o.BillingAddress = toDomainAddress(m.Billing)
	}
	for _, r := range rows {
		o.Items = append(o.Items, domain.OrderItem{
			VariantID:   r.VariantID,
			ProductName: r.ProductName,
			VariantName: r.VariantName,
			SKU:         r.SKU,
			Quantity:    r.Quantity,
			Price:       r.Price,
		})
	}
	return o
}

func toDomainWarehouse(m *WarehouseModel) *domain.Warehouse {
	return &domain.Warehouse{
		ID:                 m.ID,
		Code:               m.Code,
		Name:               m.Name,
		Phone:              m.Phone,
		Email:              m.Email,
		Line1:              m.Line1,
		Line2:              m.Line2,
		City:               m.City,
		State:              m.State,
		PostalCode:         m.PostalCode,
		Country:            m.Country,
		IsActive:           m.IsActive,
		IsPrimary:          m.IsPrimary,
		ExternalPickupID:   m.ExternalPickupID,
		ExternalPickupCode: m.ExternalPickupCode,
	}
}

func toDomainFulfillment(m *FulfillmentModel) *domain.Fulfillment {
	f := &domain.Fulfillment{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		Status:             domain.Status(m.Status),
		ExternalOrderID:    m.ExternalOrderID,
		ExternalShipmentID: m.ExternalShipmentID,
		ExternalStatus:     m.ExternalStatus,
		AWBCode:            m.AWBCode,
		CourierID:          m.CourierID,
		CourierName:        m.CourierName,
		LabelURL:           m.LabelURL,
		TrackingURL:        m.TrackingURL,
		PickupScheduledAt:  m.PickupScheduledAt,
		Package: domain.PackageDimensions{
			WeightKg:  m.WeightKg,
			LengthCm:  m.LengthCm,
			BreadthCm: m.BreadthCm,
			HeightCm:  m.HeightCm,
		},
		LastError:         m.LastError,
		FailedStep:        m.FailedStep,
		RetryCount:        m.RetryCount,
		StatusUpdatedAt:   m.StatusUpdatedAt,
		EstimatedDelivery: m.EstimatedDelivery,
		DeliveredAt:       m.DeliveredAt,
		RTOInitiatedAt:    m.RTOInitiatedAt,
		RTODeliveredAt:    m.RTODeliveredAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	if m.WarehouseID != nil {
		f.WarehouseID = *m.WarehouseID
	}
	return f
}

// fromDomainFulfillment 终态时 active_order_id 置空，释放唯一索引
func fromDomainFulfillment(f *domain.Fulfillment) *FulfillmentModel {
	m := &FulfillmentModel{
		ID:                 f.ID,
		OrderID:            f.OrderID,
		Status:             string(f.Status),
		ExternalOrderID:    f.ExternalOrderID,
		ExternalShipmentID: f.ExternalShipmentID,
		ExternalStatus:     f.ExternalStatus,
		AWBCode:            f.AWBCode,
		CourierID:          f.CourierID,
		CourierName:        f.CourierName,
		LabelURL:           f.LabelURL,
		TrackingURL:        f.TrackingURL,
		PickupScheduledAt:  f.PickupScheduledAt,
		WeightKg:           f.Package.WeightKg,
		LengthCm:           f.Package.LengthCm,
		BreadthCm:          f.Package.BreadthCm,
		HeightCm:           f.Package.HeightCm,
		LastError:          f.LastError,
		FailedStep:         f.FailedStep,
		RetryCount:         f.RetryCount,
		StatusUpdatedAt:    f.StatusUpdatedAt,
		EstimatedDelivery:  f.EstimatedDelivery,
		DeliveredAt:        f.DeliveredAt,
		RTOInitiatedAt:     f.RTOInitiatedAt,
		RTODeliveredAt:     f.RTODeliveredAt,
		CreatedAt:          f.CreatedAt,
		UpdatedAt:          f.UpdatedAt,
	}
	if f.WarehouseID != "" {
		wid := f.WarehouseID
		m.WarehouseID = &wid
	}
	if !f.Status.IsTerminal() {
		oid := f.OrderID
		m.ActiveOrderID = &oid
	}
	return m
}

func toDomainTrackingEvent(m *TrackingEventModel) *domain.TrackingEvent {
	return &domain.TrackingEvent{
		ID:            m.ID,
		FulfillmentID: m.FulfillmentID,
		Status:        domain.Status(m.Status),
		Message:       m.Message,
		Location:      m.Location,
		OccurredAt:    m.OccurredAt,
		RawPayload:    []byte(m.RawPayload),
		CreatedAt:     m.CreatedAt,
	}
}

func fromDomainTrackingEvent(e *domain.TrackingEvent) *TrackingEventModel {
	return &TrackingEventModel{
		ID:             e.ID,
		FulfillmentID:  e.FulfillmentID,
		Status:         string(e.Status),
		EventSecond:    e.OccurredAt.Unix(),
		OccurredUnixMs: e.OccurredAt.UnixMilli(),
		Message:        e.Message,
		Location:       e.Location,
		OccurredAt:     e.OccurredAt,
		RawPayload:     string(e.RawPayload),
		CreatedAt:      e.CreatedAt,
	}
}
