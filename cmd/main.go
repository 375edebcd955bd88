package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/siwarga/rwrt-backend/internal/api"
	"github.com/siwarga/rwrt-backend/internal/config"
	"github.com/siwarga/rwrt-backend/internal/container"
	"github.com/siwarga/rwrt-backend/internal/logging"
	"github.com/siwarga/rwrt-backend/internal/middleware"
	"github.com/siwarga/rwrt-backend/internal/swagger"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logging.Init(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg)
	if err != nil {
		logging.Error("Failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer c.Cleanup()

	spec, err := api.OpenAPIJSON()
	if err != nil {
		logging.Error("Failed to render OpenAPI document", "error", err)
		os.Exit(1)
	}

	r := chi.NewMux()
	r.Use(middleware.RequestContext)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.NewCORSHandler(&cfg.CORS))

	swagger.Mount(r, spec)
	c.Server.Mount(r, api.Middlewares{
		Validator:    api.NewValidator(c.Spec, c.Authenticator.Authenticate),
		Authenticate: c.Authenticator.Middleware,
	})

	go c.Hub.Run(ctx)

	addr := fmt.Sprintf("0.0.0.0:%s", cfg.Server.Port)
	s := &http.Server{
		Handler:           r,
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "addr", addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logging.Error("Graceful shutdown failed", "error", err)
	}
}
