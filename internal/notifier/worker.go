package notifier

import (
	"context"
	"fmt"

	"trimline/pkg/kafka"
	kafka_config "trimline/pkg/kafka/config"
	"trimline/pkg/logger"
	"trimline/pkg/notify"
)

// Worker consumes reservation lifecycle events and dispatches client
// notifications. Delivery here is the structured log sink; the handler is
// the extension point for real channels (SMS, email).
type Worker struct {
	consumer *kafka.Consumer
	log      *logger.Logger
}

func NewWorker(cfg *kafka_config.Config, topic, groupID string, log *logger.Logger) (*Worker, error) {
	w := &Worker{log: log}

	consumer, err := kafka.NewConsumer(cfg, topic, groupID, topic+".dlq", w.handle, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create notifier consumer: %w", err)
	}
	w.consumer = consumer
	return w, nil
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Notifier worker started")
	err := w.consumer.Start(ctx)
	w.log.Info("Notifier worker stopped")
	return err
}

func (w *Worker) Close() error {
	return w.consumer.Close()
}

func (w *Worker) handle(ctx context.Context, msg kafka.Message) error {
	var event notify.ReservationEvent
	if err := msg.DecodeValue(&event); err != nil {
		// Malformed payloads are permanent failures; they route to the DLQ.
		return fmt.Errorf("malformed reservation event: %w", err)
	}

	w.log.Info("Dispatching reservation notification",
		"event_id", msg.Headers[kafka.HeaderEventID],
		"event_type", event.EventType,
		"reservation_id", event.ReservationID,
		"client_id", event.ClientID,
		"provider_id", event.ProviderID,
		"start_time", event.StartTime,
		"status", event.Status,
	)
	return nil
}
