package main

import (
	"context"
	"shareit/internal/bookings/events"
	bookingshandler "shareit/internal/bookings/handler"
	bookingsrepo "shareit/internal/bookings/repository"
	bookingsservice "shareit/internal/bookings/service"
	"shareit/internal/health"
	itemshandler "shareit/internal/items/handler"
	itemsrepo "shareit/internal/items/repository"
	itemsservice "shareit/internal/items/service"
	requestshandler "shareit/internal/requests/handler"
	requestsrepo "shareit/internal/requests/repository"
	requestsservice "shareit/internal/requests/service"
	usershandler "shareit/internal/users/handler"
	usersrepo "shareit/internal/users/repository"
	usersservice "shareit/internal/users/service"
	"shareit/pkg/app"
	"shareit/pkg/config"
	"shareit/pkg/contracts"
	"shareit/pkg/kafka"
	kafka_config "shareit/pkg/kafka/config"
	kafka_middleware "shareit/pkg/kafka/middleware"
	"shareit/pkg/middleware"
	"shareit/pkg/validator"
)

const ServiceName = "shareit-server"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting ShareIt server")
	serverApp := app.NewApplication(cfg)

	if cfg.SetRedis() {
		serverApp.SetIdempotencyStore(middleware.NewRedisIdempotencyStore(cfg.Client.Redis, cfg.IdempotencyTTL, cfg.Log))
		cfg.Log.Info("Using Redis idempotency store")
	}

	publisher := initPublisher(cfg, serverApp)
	serverApp.SetHealth(health.NewHandler("mongo", health.CheckerFunc(func(ctx context.Context) error {
		return cfg.Client.Mongo.Ping(ctx, nil)
	}), cfg.Log))
	serverApp.SetApp(initHandlers(cfg, publisher))
	serverApp.Run()
}

func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events are not published")
		return events.NopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	metrics := kafka_middleware.NewMetrics()
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(metrics.ProducerMiddleware())
	serverApp.OnShutdown(func() {
		snapshot := metrics.Snapshot()
		cfg.Log.Info("Booking events publisher stats", "published", snapshot.Published, "failed", snapshot.PublishFailed)
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	return events.NewKafkaPublisher(producer)
}

func initHandlers(cfg *config.Config, publisher events.Publisher) contracts.Group {
	v := validator.New(cfg.Log)

	userRepo := usersrepo.NewMongoUserRepository(cfg)
	itemRepo := itemsrepo.NewMongoItemRepository(cfg)
	commentRepo := itemsrepo.NewMongoCommentRepository(cfg)
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	lockRepo := bookingsrepo.NewBookingLockRepository(cfg)
	requestRepo := requestsrepo.NewMongoRequestRepository(cfg)

	userService := usersservice.NewUserService(userRepo, v, cfg)
	itemService := itemsservice.NewItemService(itemRepo, commentRepo, bookingRepo, userRepo, requestRepo, v, cfg)
	bookingService := bookingsservice.NewBookingService(bookingRepo, lockRepo, itemRepo, userRepo, v, publisher, cfg)
	requestService := requestsservice.NewRequestService(requestRepo, itemRepo, userRepo, v, cfg)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	return contracts.Group{
		usershandler.NewUserHandler(userService, cfg.Log),
		itemshandler.NewItemHandler(itemService, cfg.Log, cfg.DefaultPageSize, cfg.MaxPageSize),
		bookingshandler.NewBookingHandler(bookingService, cfg.Log, cfg.DefaultPageSize, cfg.MaxPageSize),
		requestshandler.NewRequestHandler(requestService, cfg.Log, cfg.DefaultPageSize, cfg.MaxPageSize),
	}
}
