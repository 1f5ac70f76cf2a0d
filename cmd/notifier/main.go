package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"shareit/internal/notifier"
	"shareit/pkg/config"
	"shareit/pkg/kafka"
	kafka_config "shareit/pkg/kafka/config"
	kafka_middleware "shareit/pkg/kafka/middleware"
	"syscall"
)

const ServiceName = "shareit-notifier"

func main() {
	cfg := config.Load(ServiceName)
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	n := notifier.New(notifier.NewLogSender(cfg.Log), cfg.Log)
	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.BookingEventsTopic, cfg.NotifierGroupID, cfg.BookingEventsDLQTopic, n.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(metrics.ConsumerMiddleware())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Notifier consuming booking events", "topic", cfg.BookingEventsTopic, "group_id", cfg.NotifierGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	snapshot := metrics.Snapshot()
	cfg.Log.Info("Notifier stopped",
		"consumed", snapshot.Consumed,
		"failed", snapshot.ConsumeFailed,
		"avg_latency", snapshot.AvgConsumeLatency,
	)
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
}
