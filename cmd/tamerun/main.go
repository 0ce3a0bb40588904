package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tamerun/internal/amqp"
	"tamerun/internal/auth"
	"tamerun/internal/backend"
	"tamerun/internal/cache"
	"tamerun/internal/cli"
	"tamerun/internal/config"
	apphttp "tamerun/internal/http"
	"tamerun/internal/images"
	"tamerun/internal/log"
	"tamerun/internal/ports"
	"tamerun/internal/services"
	"tamerun/internal/vision"
)

// cacheSweepInterval is how often expired catalog entries are dropped.
const cacheSweepInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cli.ValidateConfig(logger, cfg)

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

	catalog := services.NewCategoryCatalog(store, logger)
	caches := cache.NewManager(logger)
	caches.Register(catalog)
	caches.StartCleanup(cacheSweepInterval)

	// Sync messages are best effort: the worker's sweep picks up anything
	// published while the broker is unavailable.
	var publisher ports.SyncPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, transactions will sync on the next sweep", log.FieldError, err)
		} else {
			publisher = amqpClient
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var analyzer ports.ReceiptAnalyzer
	if cfg.ReceiptAnalysisEnabled() {
		gemini, err := vision.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Gemini client", err)
		}
		analyzer = gemini
		logger.Info("Receipt analysis enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("Receipt analysis disabled - no GEMINI_API_KEY provided")
	}

	var imageStore ports.ImageStore
	var gcs *images.GCSStore
	if cfg.ReceiptBucket != "" {
		gcs, err = images.NewGCSStore(ctx, cfg.ReceiptBucket, logger)
		if err != nil {
			logger.Warn("Receipt image storage unavailable, images will not be kept", log.FieldError, err)
		} else {
			imageStore = gcs
		}
	}

	tokens := auth.NewTokenIssuer(cfg.SessionSecret, cfg.SessionTTL)
	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:         auth.NewService(store, tokens, logger),
		Tokens:       tokens,
		Transactions: services.NewTransactionService(store, catalog, publisher, logger),
		Receipts: services.NewReceiptService(analyzer, imageStore, catalog, services.ReceiptConfig{
			MaxBytes: cfg.ReceiptMaxBytes,
			Timeout:  cfg.ReceiptTimeout,
		}, logger),
		Dashboard: services.NewDashboardService(store, store, catalog, logger),
		Goals:     services.NewGoalService(store, logger),
		Catalog:   catalog,
		Storage:   store,
	}, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to build HTTP server", err)
	}

	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = cfg.ReceiptTimeout + 15*time.Second
	srv.MaxHeaderBytes = 1 << 16

	runCtx, done := cli.GracefulShutdown(logger, cli.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if gcs != nil {
			_ = gcs.Close()
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Failed to close storage", log.FieldError, err)
		}
	})

	logger.Info("Starting tamerun server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"receipts", analyzer != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	<-runCtx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
