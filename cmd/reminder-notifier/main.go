package main

import (
	"context"
	"errors"
	"os"

	"subtrack/internal/amqp"
	"subtrack/internal/cli"
	"subtrack/internal/log"
	"subtrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("reminder-notifier")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required to consume renewal reminders")
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	notifier := worker.NewReminderNotifier(os.Stdout, logger)

	logger.Info("Consuming renewal reminders", "queue", cfg.AMQPQueue)
	if err := client.ConsumeRenewalReminders(ctx, notifier.HandleRenewalReminder); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Notifier shutdown complete")
}
