package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"shareit/pkg/kafka"
)

// Metrics counts message traffic for one producer or consumer.
type Metrics struct {
	published       atomic.Int64
	publishFailed   atomic.Int64
	consumed        atomic.Int64
	consumeFailed   atomic.Int64
	consumeDuration atomic.Int64 // nanoseconds
}

type Snapshot struct {
	Published         int64
	PublishFailed     int64
	Consumed          int64
	ConsumeFailed     int64
	AvgConsumeLatency time.Duration
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		Published:     m.published.Load(),
		PublishFailed: m.publishFailed.Load(),
		Consumed:      m.consumed.Load(),
		ConsumeFailed: m.consumeFailed.Load(),
	}
	if total := s.Consumed + s.ConsumeFailed; total > 0 {
		s.AvgConsumeLatency = time.Duration(m.consumeDuration.Load() / total)
	}
	return s
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		err := next(ctx, msg)
		if err != nil {
			m.publishFailed.Add(1)
		} else {
			m.published.Add(1)
		}
		return err
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.consumeDuration.Add(int64(time.Since(start)))
		if err != nil {
			m.consumeFailed.Add(1)
		} else {
			m.consumed.Add(1)
		}
		return err
	}
}
