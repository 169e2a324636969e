package domain

import (
	"time"

	"github.com/google/uuid"
)

// DuplicateEventWindow 同一发货单、同一状态、时间差在该窗口内的事件视为重复
const DuplicateEventWindow = time.Second

// TrackingEvent 物流轨迹，只追加不修改
type TrackingEvent struct {
	ID            string
	FulfillmentID string
	Status        Status
	Message       string
	Location      string
	OccurredAt    time.Time
	RawPayload    []byte
	CreatedAt     time.Time
}

func NewTrackingEvent(fulfillmentID string, status Status, message, location string, at time.Time, raw []byte) *TrackingEvent {
	return &TrackingEvent{
		ID:            uuid.NewString(),
		FulfillmentID: fulfillmentID,
		Status:        status,
		Message:       message,
		Location:      location,
		OccurredAt:    at,
		RawPayload:    raw,
		CreatedAt:     time.Now(),
	}
}
