package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "shareit"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "9090"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPageSize   = 10
	DefaultMaxPage    = 100
	DefaultBookingTTL = 60 * time.Second

	DefaultBackendURL     = "http://localhost:9090"
	DefaultBackendTimeout = 10 * time.Second

	DefaultRedisDB = 0

	DefaultKafkaEnabled          = false
	DefaultBookingEventsTopic    = "shareit.bookings"
	DefaultBookingEventsDLQTopic = "shareit.bookings.dlq"
	DefaultNotifierGroupID       = "shareit-notifier"
)
