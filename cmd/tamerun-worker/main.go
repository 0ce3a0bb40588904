package main

import (
	"context"
	"errors"

	"tamerun/internal/amqp"
	"tamerun/internal/backend"
	"tamerun/internal/cli"
	"tamerun/internal/config"
	"tamerun/internal/log"
	"tamerun/internal/ports"
	"tamerun/internal/services"
	gsheet "tamerun/internal/sheets/google"
	memsheet "tamerun/internal/sheets/memory"
	"tamerun/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	cli.ValidateConfig(logger, cfg)

	// The memory backend runs without a broker or a spreadsheet so the worker
	// can be exercised locally.
	local := cfg.DataBackend == config.BackendMemory
	if !local {
		if err := cfg.ValidateExport(); err != nil {
			cli.Fatal(logger, "Export configuration validation failed", err)
		}
	}

	logger.Info("Starting tamerun-worker", log.FieldOperation, log.OpStartup, "backend", cfg.DataBackend)

	ctx := context.Background()
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger).Open(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize storage backend", err, "backend", cfg.DataBackend)
	}
	store := result.Store

	var exporter ports.TransactionExporter
	if local {
		exporter = memsheet.New()
		logger.Info("Exporting to an in-memory ledger")
	} else {
		sheets, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			OAuthClientJSON: cfg.GoogleOAuthClientJSON,
			OAuthClientFile: cfg.GoogleOAuthClientFile,
			OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
		}, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		}
		exporter = sheets
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	catalog := services.NewCategoryCatalog(store, logger)
	processor := services.NewSyncProcessor(store, store, catalog, exporter,
		services.SyncProcessorConfig{BatchSize: cfg.SyncBatchSize}, logger)
	syncWorker := worker.NewSyncWorker(processor, logger)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
	}

	runCtx, done := cli.GracefulShutdown(logger, cli.ShutdownTimeout, func(ctx context.Context) {
		syncWorker.Stop(ctx)
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close storage", log.FieldError, err)
		}
	})

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(runCtx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if err := syncWorker.Schedule(runCtx, cfg.SyncInterval); err != nil {
		cli.Fatal(logger, "Failed to schedule sync sweeps", err)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeTransactionSync(runCtx, syncWorker.HandleSyncMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	<-runCtx.Done()
	<-done
	logger.Info("Worker stopped gracefully", "sweeps", syncWorker.Sweeps())
}
