package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/siwarga/rwrt-backend/internal/config"
	"github.com/siwarga/rwrt-backend/internal/container"
	"github.com/siwarga/rwrt-backend/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	if err := logging.Init(&cfg.Logging); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	worker, err := container.NewWorker(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize worker: %v", err)
	}

	logging.Info("Starting queue worker...")
	// Run blocks until SIGINT/SIGTERM and then drains in-flight tasks.
	if err := worker.Run(); err != nil {
		log.Fatalf("Worker stopped: %v", err)
	}
}
