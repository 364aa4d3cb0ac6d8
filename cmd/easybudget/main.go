package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"easybudget/internal/amqp"
	"easybudget/internal/cache"
	"easybudget/internal/cli"
	"easybudget/internal/config"
	"easybudget/internal/core"
	apphttp "easybudget/internal/http"
	"easybudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	dayCache := cache.NewDayCache(repo, cfg.CacheWarmQueueDepth)
	defer dayCache.Close()

	// Change events are optional: without a broker the app still works,
	// the backup worker just sees nothing.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, change events disabled", "error", err)
		} else {
			events = c
			defer events.Close()
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svc := services.NewBudgetService(dayCache, events)
	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Pre-warm the current month so the first requests hit memory.
	if err := dayCache.WarmMonth(ctx, core.DayOf(time.Now())); err != nil {
		logger.Warn("Initial cache warm failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port)
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

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
