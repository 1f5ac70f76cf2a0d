// Package notifier turns booking events into notifications for the
// owner and the booker.
package notifier

import (
	"context"
	"fmt"
	"shareit/internal/bookings/events"
	"shareit/pkg/kafka"
	"shareit/pkg/logger"
	"shareit/pkg/model"
)

type Notification struct {
	RecipientID   int64
	BookingID     int64
	EventType     string
	Text          string
	CorrelationID string
}

// Sender delivers a notification. A returned error is retried by the consumer.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the log.
type LogSender struct {
	log *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, n Notification) error {
	s.log.FromContext(ctx).Info("Notification",
		"recipient_id", n.RecipientID,
		"booking_id", n.BookingID,
		"event_type", n.EventType,
		"correlation_id", n.CorrelationID,
		"text", n.Text,
	)
	return nil
}

type Notifier struct {
	sender Sender
	log    *logger.Logger
}

func New(sender Sender, log *logger.Logger) *Notifier {
	return &Notifier{sender: sender, log: log}
}

// Handle is a kafka.MessageHandler.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	if id := msg.GetCorrelationID(); id != "" {
		ctx = logger.WithRequestID(ctx, id)
	}

	var event events.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return err
	}

	notifications, err := Build(msg.GetEventType(), event)
	if err != nil {
		return kafka.NewPermanentError("unsupported booking event", err)
	}

	for _, nt := range notifications {
		nt.CorrelationID = msg.GetCorrelationID()
		if err := n.sender.Send(ctx, nt); err != nil {
			return kafka.NewTransientError("notification delivery failed", err)
		}
	}
	return nil
}

// Build maps an event to the notifications it produces. New bookings and
// cancellations go to the owner; decisions go to the booker.
func Build(eventType string, e events.BookingEvent) ([]Notification, error) {
	period := fmt.Sprintf("%s - %s", e.Start.Format("2006-01-02 15:04"), e.End.Format("2006-01-02 15:04"))

	switch eventType {
	case events.EventBookingCreated:
		return []Notification{{
			RecipientID: e.OwnerID,
			BookingID:   e.BookingID,
			EventType:   eventType,
			Text:        fmt.Sprintf("User %d asks to book %q for %s", e.BookerID, e.ItemName, period),
		}}, nil
	case events.EventBookingDecided:
		verdict := "rejected"
		if e.Status == model.StatusApproved {
			verdict = "approved"
		}
		return []Notification{{
			RecipientID: e.BookerID,
			BookingID:   e.BookingID,
			EventType:   eventType,
			Text:        fmt.Sprintf("Your booking of %q for %s was %s", e.ItemName, period, verdict),
		}}, nil
	case events.EventBookingCanceled:
		return []Notification{{
			RecipientID: e.OwnerID,
			BookingID:   e.BookingID,
			EventType:   eventType,
			Text:        fmt.Sprintf("User %d canceled the booking of %q for %s", e.BookerID, e.ItemName, period),
		}}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}
