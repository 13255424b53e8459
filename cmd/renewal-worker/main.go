package main

import (
	"os"

	"subtrack/internal/amqp"
	"subtrack/internal/cli"
	"subtrack/internal/config"
	"subtrack/internal/log"
	"subtrack/internal/services"
	"subtrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("renewal-worker")

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is private to this process - the worker only sees its seed data")
	}

	st := cli.MustOpenStore(ctx, cfg, logger)
	defer st.Close()

	var publisher services.ReminderPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		logger.Info("Publishing renewal reminders", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - renewal reminders are only logged")
	}

	reminders := services.NewReminderService(st, publisher, cfg.ReminderWindowDays, logger)
	// Reload before each scan so edits made through the server are seen.
	scheduler := worker.NewRenewalScheduler(reminders, st.Load, cfg.ReminderInterval, logger)

	logger.Info("Renewal scheduler started",
		"interval", cfg.ReminderInterval,
		"window_days", cfg.ReminderWindowDays)
	if err := scheduler.Run(ctx); err != nil {
		logger.Error("Renewal scheduler stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
