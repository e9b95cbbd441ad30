package assessment

import (
	"context"

	"github.com/vitalpath-ai/platform/pkg/common/kafka"
	"github.com/vitalpath-ai/platform/pkg/common/logger"
)

const (
	EventCompleted = "assessment.completed"
	EventFailed    = "assessment.failed"

	eventSource = "inference-service"
)

// Notifier announces terminal transitions. Publishing is best effort;
// a broker outage never fails a job that already finished.
type Notifier interface {
	NotifyCompleted(ctx context.Context, rec *Record)
	NotifyFailed(ctx context.Context, rec *Record)
}

// KafkaNotifier publishes completion events to the assessment topic.
type KafkaNotifier struct {
	producer *kafka.Producer
}

func NewKafkaNotifier(producer *kafka.Producer) *KafkaNotifier {
	return &KafkaNotifier{producer: producer}
}

func (n *KafkaNotifier) NotifyCompleted(ctx context.Context, rec *Record) {
	n.publish(ctx, EventCompleted, rec)
}

func (n *KafkaNotifier) NotifyFailed(ctx context.Context, rec *Record) {
	n.publish(ctx, EventFailed, rec)
}

func (n *KafkaNotifier) publish(ctx context.Context, eventType string, rec *Record) {
	data := map[string]interface{}{
		"job_id":     rec.ID,
		"state":      string(rec.State),
		"progress":   rec.Progress,
		"conditions": rec.Conditions,
	}
	if rec.Failure != nil {
		data["error_class"] = rec.Failure.Class
		data["error_code"] = rec.Failure.Code
	}
	if err := n.producer.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.WithJob(rec.ID, "notify").WithError(err).Warn("Completion event not published")
	}
}

// NoopNotifier is the fallback when Kafka is not configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifyCompleted(context.Context, *Record) {}
func (NoopNotifier) NotifyFailed(context.Context, *Record)   {}
