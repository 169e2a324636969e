package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/propranjan/radhagsareees-sub002/internal/pkg/mq"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain"
	"github.com/propranjan/radhagsareees-sub002/internal/service/fulfillment/domain/port"
)

// EventKafkaAdapter 实现了 port.EventPublisher 接口，按 orderId 分区保证同一订单的事件有序
type EventKafkaAdapter struct {
	writer *kafka.Writer
}

func NewEventKafkaAdapter(writer *kafka.Writer) *EventKafkaAdapter {
	return &EventKafkaAdapter{writer: writer}
}

func (a *EventKafkaAdapter) Publish(ctx context.Context, event domain.FulfillmentEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal fulfillment event")
	}
	return mq.ProduceMessage(ctx, a.writer, []byte(event.OrderID), eventBytes)
}

// Close 关闭底层的Kafka writer。
func (a *EventKafkaAdapter) Close() error {
	return a.writer.Close()
}

// NoopEventPublisher 未配置 kafka 时使用
type NoopEventPublisher struct{}

func (NoopEventPublisher) Publish(context.Context, domain.FulfillmentEvent) error { return nil }

var (
	_ port.EventPublisher = (*EventKafkaAdapter)(nil)
	_ port.EventPublisher = NoopEventPublisher{}
)
