// Package notification publishes ingested sensor records to a kafka topic
// for downstream consumers. Delivery is best effort and asynchronous; a
// lost notification is logged, never surfaced to the HTTP caller.
package notification

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/yavuzelcil/rustyflow-iot/core/logger"
	"github.com/yavuzelcil/rustyflow-iot/telemetry"
)

// Notifier publishes sensor records to kafka.
type Notifier struct {
	writer *kafka.Writer
}

// NewNotifier returns a notifier for the given comma-separated broker list
// and topic.
func NewNotifier(brokers string, topic string) *Notifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Default().Warnf("notification publish failed for %d messages: %v", len(messages), err)
			}
		},
	}
	logger.Default().Infoln("publishing ingest notifications to kafka topic", topic)
	return &Notifier{writer: writer}
}

// Notify submits the record, keyed by its cache key so one partition sees
// all updates of a device/kind pair in order.
func (n *Notifier) Notify(ctx context.Context, record telemetry.SensorRecord) {
	body, err := json.Marshal(record)
	if err != nil {
		logger.FromContext(ctx).Errorln("marshal notification:", err)
		return
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.Key()),
		Value: body,
	})
	if err != nil {
		logger.FromContext(ctx).Warnln("notification publish failed:", err)
	}
}

// Close flushes and closes the kafka writer.
func (n *Notifier) Close() error {
	return n.writer.Close()
}
