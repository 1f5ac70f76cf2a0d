package events

import (
	"context"
	"shareit/pkg/kafka"
	"shareit/pkg/logger"
	"shareit/pkg/model"
	"strconv"
	"time"
)

const (
	EventBookingCreated  = "booking.created"
	EventBookingDecided  = "booking.decided"
	EventBookingCanceled = "booking.canceled"

	SchemaVersion = "1"
	Source        = "shareit-server"
)

// BookingEvent is the payload on the booking events topic.
type BookingEvent struct {
	BookingID  int64               `json:"booking_id"`
	ItemID     int64               `json:"item_id"`
	ItemName   string              `json:"item_name"`
	OwnerID    int64               `json:"owner_id"`
	BookerID   int64               `json:"booker_id"`
	Start      time.Time           `json:"start"`
	End        time.Time           `json:"end"`
	Status     model.BookingStatus `json:"status"`
	OccurredAt time.Time           `json:"occurred_at"`
}

func NewBookingEvent(b *model.Booking, item *model.Item, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:  b.ID,
		ItemID:     b.ItemID,
		ItemName:   item.Name,
		OwnerID:    item.OwnerID,
		BookerID:   b.BookerID,
		Start:      b.Start,
		End:        b.End,
		Status:     b.Status,
		OccurredAt: at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, eventType string, event BookingEvent) error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
}

func NewKafkaPublisher(producer messagePublisher) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys messages by item so events of one item stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, event BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(strconv.FormatInt(event.ItemID, 10)).
		WithValue(event).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithCorrelationID(logger.RequestID(ctx)).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// NopPublisher is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, BookingEvent) error { return nil }
