package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/core"
	"github.com/basinworks/filings-tracker/internal/extract"
	"github.com/basinworks/filings-tracker/internal/jobs"
	"github.com/basinworks/filings-tracker/internal/llm"
	"github.com/basinworks/filings-tracker/internal/llm/anthropic"
	"github.com/basinworks/filings-tracker/internal/ocr"
	"github.com/basinworks/filings-tracker/internal/repository"
	"github.com/basinworks/filings-tracker/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	jobRunRepo := repository.NewJobRunRepository(pool, logger)
	contactRepo := repository.NewContactRepository(pool, logger)
	tracker := jobs.NewTracker(jobRunRepo, cfg.Jobs.ProjectOrigin, cfg.Jobs.StaleAfter, logger)

	// runs orphaned by a crashed predecessor get failed before we start new work
	if reclaimed, err := tracker.ReclaimStale(ctx); err != nil {
		logger.Error("stale job reclamation failed", "error", err)
	} else if reclaimed > 0 {
		logger.Warn("reclaimed stale jobs", "count", reclaimed)
	}

	docStore, err := store.NewFSStore(cfg.Store.RootDir, logger)
	if err != nil {
		logger.Error("document store unavailable", "error", err)
		os.Exit(1)
	}

	processor := buildProcessor(cfg, docStore, contactRepo, tracker, logger)

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("grpc serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	go runScheduler(ctx, cfg, processor, logger)

	<-ctx.Done()
	logger.Info("shutting down")
	grpcServer.GracefulStop()
	logger.Info("stopped")
}

// runScheduler fires an ingestion run immediately and then on every tick.
func runScheduler(ctx context.Context, cfg *common.Config, processor *core.Processor, logger *slog.Logger) {
	run := func() {
		jobID, metrics, err := processor.RunJob(ctx, cfg.Store.Prefix, constants.TriggerCron)
		if err != nil {
			logger.Error("scheduled run failed", "job_id", jobID, "error", err)
			return
		}
		logger.Info("scheduled run complete",
			"job_id", jobID,
			"total", metrics.TotalFiles,
			"processed", metrics.SuccessfullyProcessed,
			"contacts", metrics.ContactsExtracted)
	}

	run()
	ticker := time.NewTicker(cfg.Jobs.RunInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func buildProcessor(cfg *common.Config, docStore store.DocumentStore, contactRepo repository.ContactRepository, tracker *jobs.Tracker, logger *slog.Logger) *core.Processor {
	runner := extract.NewRunner(cfg.Extract.CommandTimeout)
	optimizer := extract.NewGhostscriptOptimizer(cfg.Extract.Ghostscript, cfg.Extract.WorkDir, runner, logger)
	localOCR := extract.NewLocalOCR(extract.LocalOCRConfig{
		Pdftoppm:  cfg.Extract.Pdftoppm,
		Tesseract: cfg.Extract.Tesseract,
		DPI:       cfg.Extract.DPI,
		WorkDir:   cfg.Extract.WorkDir,
	}, runner, logger)

	var cloudOCR extract.OCRProvider
	if cfg.Extract.OCREndpoint != "" {
		cloudOCR = ocr.NewCloudClient(ocr.CloudConfig{
			Endpoint: cfg.Extract.OCREndpoint,
			APIKey:   cfg.Extract.OCRAPIKey,
		}, logger)
	}

	vision := anthropic.NewClient(anthropic.Config{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Timeout:   cfg.LLM.Timeout,
		MaxPages:  cfg.LLM.MaxPages,
	}, logger)
	retrier := llm.NewRetrier(cfg.LLM.BaseDelay, cfg.LLM.MaxRetries, logger)

	cascade := extract.NewOrchestrator(extract.Config{
		CloudMaxBytes:  cfg.Extract.OCRMaxBytes,
		OCRMaxPages:    cfg.Extract.OCRMaxPages,
		VisionMaxPages: cfg.LLM.MaxPages,
		ChunkDelay:     cfg.LLM.ChunkDelay,
	}, optimizer, cloudOCR, localOCR, vision, retrier, logger)

	return core.NewProcessor(logger, docStore, cascade, vision, retrier,
		contactRepo, tracker, cfg.Jobs.ProjectOrigin, cfg.LLM.DocumentDelay)
}
