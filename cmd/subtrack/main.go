package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/amqp"
	"subtrack/internal/cache"
	"subtrack/internal/cli"
	"subtrack/internal/export"
	apphttp "subtrack/internal/http"
	"subtrack/internal/log"
	"subtrack/internal/metrics"
	"subtrack/internal/services"
	"subtrack/internal/store"
	"subtrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap("subtrack server")

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	m := metrics.New()
	st := cli.MustOpenStore(ctx, cfg, logger, store.WithMetrics(m))

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Store:              st,
		Exporter:           export.NewExporter(st, logger).WithCache(cache.NewLRUCache[[]byte](4, 10*time.Minute)),
		Metrics:            m,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	var scheduler *worker.RenewalScheduler
	if cfg.ReminderInProcess {
		var publisher services.ReminderPublisher
		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				logger.Error("Failed to initialize AMQP client", log.FieldError, err)
				os.Exit(1)
			}
			defer client.Close()
			publisher = client
		} else {
			logger.Info("AMQP disabled - renewal reminders are only logged")
		}
		reminders := services.NewReminderService(st, publisher, cfg.ReminderWindowDays, logger).WithRecorder(m)
		scheduler = worker.NewRenewalScheduler(reminders, nil, cfg.ReminderInterval, logger)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting subtrack server", "port", cfg.Port, log.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if scheduler != nil {
		g.Go(func() error { return scheduler.Run(gctx) })
	}

	err := g.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ferr := st.Flush(flushCtx); ferr != nil {
		logger.Error("Final save failed", log.FieldOperation, log.OpShutdown, log.FieldError, ferr)
	}
	if cerr := st.Close(); cerr != nil {
		logger.Error("Failed to close storage", log.FieldError, cerr)
	}

	if err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
