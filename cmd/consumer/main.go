package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-coordinator/internal/config"
	"github.com/iliyamo/seat-hold-coordinator/internal/logger"
	"github.com/iliyamo/seat-hold-coordinator/internal/queue"
)

// The consumer runs separately from the server so the broker can buffer
// events while it is down.
func main() {
	_ = godotenv.Load()
	log, err := logger.New("booking-consumer", os.Getenv("APP_ENV"))
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := queue.NewConsumer(config.LoadQueueConfig().URL, log)
	if path := os.Getenv("BOOKING_LOG_PATH"); path != "" {
		c.LogPath = path
	}
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("consumer stopped", zap.Error(err))
	}
}
