package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"trimline/internal/notifier"
	kafka_config "trimline/pkg/kafka/config"
	"trimline/pkg/logger"
)

const ServiceName = "notifier"

func main() {
	log := logger.New(logger.Config{
		Level:     getEnv("LOG_LEVEL", logger.INFO),
		Format:    logger.JSON,
		AddSource: true,
		Service:   ServiceName,
	})

	topic := getEnv("NOTIFICATIONS_TOPIC", "reservations.events")
	groupID := getEnv("NOTIFIER_GROUP_ID", "trimline-notifier")

	worker, err := notifier.NewWorker(kafka_config.Load(), topic, groupID, log)
	if err != nil {
		log.Fatal("Failed to initialize notifier worker", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil {
		log.Error("Notifier worker exited with error", "error", err)
	}
	if err := worker.Close(); err != nil {
		log.Error("Failed to close notifier worker", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
