package main

import (
	"context"
	"shareit/internal/gateway/handler"
	"shareit/internal/health"
	"shareit/pkg/app"
	"shareit/pkg/client"
	"shareit/pkg/config"
	"shareit/pkg/middleware"
	"shareit/pkg/validator"
	"time"
)

const (
	ServiceName        = "shareit-gateway"
	backendStartupWait = 30 * time.Second
)

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting ShareIt gateway", "backend", cfg.BackendURL)
	gatewayApp := app.NewApplication(cfg)

	if cfg.SetRedis() {
		gatewayApp.SetIdempotencyStore(middleware.NewRedisIdempotencyStore(cfg.Client.Redis, cfg.IdempotencyTTL, cfg.Log))
		cfg.Log.Info("Using Redis idempotency store")
	}

	backend := client.NewHttpClient(cfg.BackendURL, cfg.BackendTimeout)
	if err := backend.WaitForHealthy(backendStartupWait); err != nil {
		cfg.Log.Warn("Backend not healthy yet, serving anyway", "backend", cfg.BackendURL, "error", err)
	}
	gatewayApp.SetHealth(health.NewHandler("backend", health.CheckerFunc(func(ctx context.Context) error {
		return backend.Ping(ctx)
	}), cfg.Log))

	gateway := handler.NewGateway(backend, validator.New(cfg.Log), cfg.Log)
	gatewayApp.SetAppRouter(gateway.Router())
	gatewayApp.Run()
}
