// internal/service/fulfillment/domain/fulfillment.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Fulfillment 代表订单的一次发货尝试，永不删除
type Fulfillment struct {
	ID          string
	OrderID     string
	WarehouseID string
	Status      Status

	ExternalOrderID    string
	ExternalShipmentID string
	ExternalStatus     string // 承运商推送的原始状态
	AWBCode            string
	CourierID          string
	CourierName        string
	LabelURL           string
	TrackingURL        string
	PickupScheduledAt  *time.Time

	Package PackageDimensions

	LastError  string
	FailedStep string
	RetryCount int

	StatusUpdatedAt   time.Time
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
	RTOInitiatedAt    *time.Time
	RTODeliveredAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewPendingFulfillment 在调用任何承运商接口之前创建本地记录
func NewPendingFulfillment(orderID, warehouseID string, pkg PackageDimensions, now time.Time) *Fulfillment {
	return &Fulfillment{
		ID:              uuid.NewString(),
		OrderID:         orderID,
		WarehouseID:     warehouseID,
		Status:          StatusPending,
		Package:         pkg,
		StatusUpdatedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MarkPickupScheduled 承运商链路全部成功后调用
func (f *Fulfillment) MarkPickupScheduled(now time.Time) {
	f.Status = StatusPickupScheduled
	f.LastError = ""
	f.FailedStep = ""
	f.StatusUpdatedAt = now
	f.UpdatedAt = now
}

// MarkFailed 记录失败步骤和错误信息，供人工排查
func (f *Fulfillment) MarkFailed(step, message string, now time.Time) {
	f.Status = StatusFailed
	f.FailedStep = step
	f.LastError = message
	f.RetryCount++
	f.StatusUpdatedAt = now
	f.UpdatedAt = now
}

// ApplyStatus 按状态机推进状态，返回是否真的发生了变化。
// 首次进入 DELIVERED / RTO_INITIATED / RTO_DELIVERED 时记录对应时间。
func (f *Fulfillment) ApplyStatus(to Status, raw string, now time.Time) bool {
	if !CanTransition(f.Status, to) {
		return false
	}
	changed := f.Status != to
	f.Status = to
	if raw != "" {
		f.ExternalStatus = raw
	}
	f.StatusUpdatedAt = now
	f.UpdatedAt = now

	switch to {
	case StatusDelivered:
		if f.DeliveredAt == nil {
			f.DeliveredAt = &now
		}
	case StatusRTOInitiated:
		if f.RTOInitiatedAt == nil {
			f.RTOInitiatedAt = &now
		}
	case StatusRTOInTransit:
		if f.RTOInitiatedAt == nil {
			f.RTOInitiatedAt = &now
		}
	case StatusRTODelivered:
		if f.RTOInitiatedAt == nil {
			f.RTOInitiatedAt = &now
		}
		if f.RTODeliveredAt == nil {
			f.RTODeliveredAt = &now
		}
	}
	return changed
}
