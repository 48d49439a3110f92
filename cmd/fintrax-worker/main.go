package main

import (
	"context"
	"os"
	"time"

	"fintrax/internal/cli"
	"fintrax/internal/log"
	"fintrax/internal/sources/google"
	"fintrax/internal/worker"
)

const (
	importJob       = "sheets-import"
	shutdownTimeout = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadConfig(cli.Validate, cli.ValidateImporter)
	logger := cli.SetupLogger(cfg.LogLevel)

	logger.Info("Starting fintrax-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sheet, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, google.Credentials{
		JSON: cfg.GoogleServiceAccountJSON,
		File: cfg.GoogleServiceAccountFile,
	}, logger.WithComponent(log.ComponentSheets).Logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		log.FieldSheetsRef, sheet.Range())

	var publisher worker.InvalidationPublisher
	if broker := cli.ConnectAMQP(cfg, logger); broker != nil {
		publisher = broker
		defer broker.Close()
	}

	importer := worker.NewSheetsImporter(sheet, repo, publisher, logger)
	scheduler := worker.NewScheduler(ctx, logger)
	if err := scheduler.Register(importJob, cfg.ImportCron, importer.Run); err != nil {
		logger.Error("Failed to schedule sheets import", log.FieldError, err, "spec", cfg.ImportCron)
		os.Exit(1)
	}

	// Catch up before the first scheduled run; failures are logged by the
	// scheduler and retried on schedule.
	_ = scheduler.RunNow(importJob)
	scheduler.Start()

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	logger.Info("Worker stopped gracefully")
}
