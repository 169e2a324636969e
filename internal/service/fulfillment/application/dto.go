// internal/service/fulfillment/application/dto.go
package application

import (
	"strings"
	"time"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/jsonx"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
)

// CreateShipmentRequest 是创建发货单的入参，尺寸字段为空时使用默认公式
type CreateShipmentRequest struct {
	OrderID     string   `json:"order_id"`
	WarehouseID string   `json:"warehouse_id,omitempty"`
	CourierID   string   `json:"courier_id,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Length      *float64 `json:"length,omitempty"`
	Breadth     *float64 `json:"breadth,omitempty"`
	Height      *float64 `json:"height,omitempty"`
}

func (r *CreateShipmentRequest) Validate() error {
	const op = "CreateShipment"
	r.OrderID = strings.TrimSpace(r.OrderID)
	if r.OrderID == "" {
		return domain.E(domain.KindValidation, op, "order_id is required")
	}
	dims := []struct {
		name string
		v    *float64
	}{{"weight", r.Weight}, {"length", r.Length}, {"breadth", r.Breadth}, {"height", r.Height}}
	for _, d := range dims {
		if d.v != nil && *d.v <= 0 {
			return domain.E(domain.KindValidation, op, "%s must be positive", d.name)
		}
	}
	return nil
}

func (r *CreateShipmentRequest) Overrides() domain.DimensionOverrides {
	return domain.DimensionOverrides{WeightKg: r.Weight, LengthCm: r.Length, BreadthCm: r.Breadth, HeightCm: r.Height}
}

// FulfillmentDTO 对外返回的发货单
type FulfillmentDTO struct {
	ID                 string     `json:"id"`
	OrderID            string     `json:"orderId"`
	WarehouseID        string     `json:"warehouseId,omitempty"`
	Status             string     `json:"status"`
	ExternalOrderID    string     `json:"externalOrderId,omitempty"`
	ExternalShipmentID string     `json:"externalShipmentId,omitempty"`
	ExternalStatus     string     `json:"externalStatus,omitempty"`
	AWBCode            string     `json:"awbCode,omitempty"`
	CourierName        string     `json:"courierName,omitempty"`
	LabelURL           string     `json:"labelUrl,omitempty"`
	TrackingURL        string     `json:"trackingUrl,omitempty"`
	WeightKg           float64    `json:"weight"`
	LengthCm           float64    `json:"length"`
	BreadthCm          float64    `json:"breadth"`
	HeightCm           float64    `json:"height"`
	LastError          string     `json:"lastError,omitempty"`
	FailedStep         string     `json:"failedStep,omitempty"`
	RetryCount         int        `json:"retryCount"`
	StatusUpdatedAt    time.Time  `json:"statusUpdatedAt"`
	EstimatedDelivery  *time.Time `json:"estimatedDelivery,omitempty"`
	PickupScheduledAt  *time.Time `json:"pickupScheduledAt,omitempty"`
	DeliveredAt        *time.Time `json:"deliveredAt,omitempty"`
	RTOInitiatedAt     *time.Time `json:"rtoInitiatedAt,omitempty"`
	RTODeliveredAt     *time.Time `json:"rtoDeliveredAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`

	Events []TrackingEventDTO `json:"events,omitempty"`
}

func NewFulfillmentDTO(f *domain.Fulfillment) FulfillmentDTO {
	return FulfillmentDTO{
		ID:                 f.ID,
		OrderID:            f.OrderID,
		WarehouseID:        f.WarehouseID,
		Status:             string(f.Status),
		ExternalOrderID:    f.ExternalOrderID,
		ExternalShipmentID: f.ExternalShipmentID,
		ExternalStatus:     f.ExternalStatus,
		AWBCode:            f.AWBCode,
		CourierName:        f.CourierName,
		LabelURL:           f.LabelURL,
		TrackingURL:        f.TrackingURL,
		WeightKg:           f.Package.WeightKg,
		LengthCm:           f.Package.LengthCm,
		BreadthCm:          f.Package.BreadthCm,
		HeightCm:           f.Package.HeightCm,
		LastError:          f.LastError,
		FailedStep:         f.FailedStep,
		RetryCount:         f.RetryCount,
		StatusUpdatedAt:    f.StatusUpdatedAt,
		EstimatedDelivery:  f.EstimatedDelivery,
		PickupScheduledAt:  f.PickupScheduledAt,
		DeliveredAt:        f.DeliveredAt,
		RTOInitiatedAt:     f.RTOInitiatedAt,
		RTODeliveredAt:     f.RTODeliveredAt,
		CreatedAt:          f.CreatedAt,
	}
}

type TrackingEventDTO struct {
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Location   string    `json:"location,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewTrackingEventDTO(e *domain.TrackingEvent) TrackingEventDTO {
	return TrackingEventDTO{Status: string(e.Status), Message: e.Message, Location: e.Location, OccurredAt: e.OccurredAt}
}

// WebhookScan 承运商推送里的一条扫描记录
type WebhookScan struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Location string `json:"location"`
	Activity string `json:"activity"`
	Status   string `json:"status"`
}

// WebhookPayload 承运商回调的请求体，id 字段可能是数字也可能是字符串
type WebhookPayload struct {
	OrderID       jsonx.FlexString `json:"order_id"`
	ShipmentID    jsonx.FlexString `json:"shipment_id"`
	AWB           jsonx.FlexString `json:"awb"`
	CurrentStatus string           `json:"current_status"`
	Scans         []WebhookScan    `json:"scans"`
	EDD           string           `json:"edd"`
	CourierName   string           `json:"courier_name"`
}

// WebhookResult 回调处理结果，未找到发货单时 Success 为 false 但仍然返回 200
type WebhookResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	FulfillmentID string `json:"fulfillmentId,omitempty"`
	Status        string `json:"status,omitempty"`
	Duplicate     bool   `json:"duplicate,omitempty"`
}

type WarehouseDTO struct {
	ID                 string `json:"id"`
	Code               string `json:"code"`
	Name               string `json:"name"`
	PostalCode         string `json:"postalCode"`
	IsActive           bool   `json:"isActive"`
	IsPrimary          bool   `json:"isPrimary"`
	ExternalPickupID   string `json:"externalPickupId,omitempty"`
	ExternalPickupCode string `json:"externalPickupCode,omitempty"`
}

func NewWarehouseDTO(w *domain.Warehouse) WarehouseDTO {
	return WarehouseDTO{
		ID:                 w.ID,
		Code:               w.Code,
		Name:               w.Name,
		PostalCode:         w.PostalCode,
		IsActive:           w.IsActive,
		IsPrimary:          w.IsPrimary,
		ExternalPickupID:   w.ExternalPickupID,
		ExternalPickupCode: w.ExternalPickupCode,
	}
}
