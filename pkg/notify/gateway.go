package notify

import (
	"context"
	"time"

	"trimline/pkg/kafka"
	"trimline/pkg/logger"
	"trimline/pkg/model"
)

// Event types published on the reservations topic.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationUpdated   = "reservation.updated"
	EventReservationCancelled = "reservation.cancelled"
)

const eventSource = "reservations-service"

// ReservationEvent is the payload published for every schedule change.
type ReservationEvent struct {
	EventType      string    `json:"event_type"`
	ReservationID  string    `json:"reservation_id"`
	ClientID       string    `json:"client_id"`
	ProviderID     string    `json:"provider_id"`
	ServiceID      string    `json:"service_id"`
	StartTime      time.Time `json:"start_time"`
	DurationMin    int       `json:"duration_min"`
	Status         string    `json:"status"`
	Version        int64     `json:"version"`
	OccurredAt     time.Time `json:"occurred_at"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

// Gateway delivers reservation lifecycle events to interested consumers.
// Delivery is best-effort: a failed publish never fails the reservation
// operation that triggered it.
type Gateway interface {
	ReservationCreated(ctx context.Context, res *model.Reservation)
	ReservationUpdated(ctx context.Context, res *model.Reservation)
	ReservationCancelled(ctx context.Context, res *model.Reservation)
	Close() error
}

type publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaGateway publishes events keyed by provider id so each provider's
// events arrive in order.
type KafkaGateway struct {
	producer publisher
	log      *logger.Logger
}

func NewKafkaGateway(producer publisher, log *logger.Logger) *KafkaGateway {
	return &KafkaGateway{producer: producer, log: log}
}

func (g *KafkaGateway) ReservationCreated(ctx context.Context, res *model.Reservation) {
	g.publish(ctx, EventReservationCreated, res)
}

func (g *KafkaGateway) ReservationUpdated(ctx context.Context, res *model.Reservation) {
	g.publish(ctx, EventReservationUpdated, res)
}

func (g *KafkaGateway) ReservationCancelled(ctx context.Context, res *model.Reservation) {
	g.publish(ctx, EventReservationCancelled, res)
}

func (g *KafkaGateway) publish(ctx context.Context, eventType string, res *model.Reservation) {
	event := ReservationEvent{
		EventType:     eventType,
		ReservationID: res.ID,
		ClientID:      res.ClientID,
		ProviderID:    res.ProviderID,
		ServiceID:     res.ServiceID,
		StartTime:     res.StartTime,
		DurationMin:   res.DurationMin,
		Status:        res.Status,
		Version:       res.Version,
		OccurredAt:    time.Now().UTC(),
	}

	msg := kafka.NewMessage().
		WithKey(res.ProviderID).
		WithValue(event).
		WithEventType(eventType).
		WithSource(eventSource).
		Build()

	if err := g.producer.Publish(ctx, msg); err != nil {
		g.log.Warn("failed to publish reservation event",
			"event_type", eventType,
			"reservation_id", res.ID,
			"provider_id", res.ProviderID,
			"error", err)
	}
}

func (g *KafkaGateway) Close() error {
	return g.producer.Close()
}

// NoopGateway is used when notifications are disabled.
type NoopGateway struct{}

func (NoopGateway) ReservationCreated(context.Context, *model.Reservation)   {}
func (NoopGateway) ReservationUpdated(context.Context, *model.Reservation)   {}
func (NoopGateway) ReservationCancelled(context.Context, *model.Reservation) {}
func (NoopGateway) Close() error                                             { return nil }
