package domain

import "time"

// EventType 发货单领域事件类型
type EventType string

const (
	EventFulfillmentCreated       EventType = "fulfillment.created"
	EventFulfillmentFailed        EventType = "fulfillment.failed"
	EventFulfillmentStatusChanged EventType = "fulfillment.status_changed"
)

// FulfillmentEvent 在数据库提交之后发布
type FulfillmentEvent struct {
	Type           EventType `json:"type"`
	FulfillmentID  string    `json:"fulfillmentId"`
	OrderID        string    `json:"orderId"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previousStatus,omitempty"`
	AWBCode        string    `json:"awbCode,omitempty"`
	CourierName    string    `json:"courierName,omitempty"`
	Error          string    `json:"error,omitempty"`
	Step           string    `json:"step,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// NewFulfillmentEvent 从当前发货单状态构造事件
func NewFulfillmentEvent(t EventType, f *Fulfillment, previous Status) FulfillmentEvent {
	return FulfillmentEvent{
		Type:           t,
		FulfillmentID:  f.ID,
		OrderID:        f.OrderID,
		Status:         f.Status,
		PreviousStatus: previous,
		AWBCode:        f.AWBCode,
		CourierName:    f.CourierName,
		Error:          f.LastError,
		Step:           f.FailedStep,
		OccurredAt:     f.UpdatedAt,
	}
}
