package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/heliseats/config"
	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/kafka"
	"github.com/Domenick1991/heliseats/internal/logging"
	"github.com/Domenick1991/heliseats/internal/metrics"
	"github.com/Domenick1991/heliseats/internal/notify"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatalf("worker needs kafka.brokers")
	}

	logger, err := logging.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	renderer, err := notify.NewRenderer(cfg.Worker.TicketsDir)
	if err != nil {
		logger.Fatalw("init ticket renderer", "error", err)
	}
	sender := notify.NewSender(
		notify.NewLogChannel(domain.ContactEmail, logger),
		notify.NewLogChannel(domain.ContactPhone, logger),
	)
	handler := notify.NewHandler(renderer, sender, logger, m)

	messages := notify.NewMessageHandler(handler, cfg.Worker.DeliveryAttempts, cfg.Worker.RetryBackoff(), logger)
	if cfg.Kafka.DeadLetterTopic != "" {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		defer producer.Close()
		messages.WithDeadLetter(producer, cfg.Kafka.DeadLetterTopic, cfg.Kafka.PublishRetries)
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	logger.Infow("notification worker started",
		"topic", cfg.Kafka.NotificationsTopic,
		"group", cfg.Kafka.GroupID,
		"dead_letter_topic", cfg.Kafka.DeadLetterTopic,
		"attempts", cfg.Worker.DeliveryAttempts)

	// The offset advances only once a message is delivered, dead-lettered or
	// dropped after its attempts; any other error leaves it for redelivery.
	err = consumer.Consume(ctx, messages.Handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorw("consumer stopped", "error", err)
		stop()
		consumer.Close()
		logger.Sync()
		os.Exit(1)
	}
	logger.Infow("notification worker stopped")
}
