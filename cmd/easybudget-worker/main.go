package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"easybudget/internal/amqp"
	"easybudget/internal/backup"
	"easybudget/internal/backup/google"
	"easybudget/internal/backup/memory"
	"easybudget/internal/cli"
	"easybudget/internal/config"
	"easybudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting easybudget-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backend backup.Backend
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		backend = client
		logger.Info("Google Sheets backup initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		backend = memory.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID provided, backing up to memory only")
	}

	w := worker.NewBackupWorker(repo, backend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqp.ConsumeWithReconnect(gctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.BackupRetryInterval,
			func(msg *amqp.ChangeMessage) error {
				return w.HandleChange(gctx, msg)
			})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
