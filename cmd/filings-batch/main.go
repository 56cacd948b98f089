package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/core"
	"github.com/basinworks/filings-tracker/internal/export"
	"github.com/basinworks/filings-tracker/internal/extract"
	"github.com/basinworks/filings-tracker/internal/jobs"
	"github.com/basinworks/filings-tracker/internal/llm"
	"github.com/basinworks/filings-tracker/internal/llm/anthropic"
	"github.com/basinworks/filings-tracker/internal/ocr"
	"github.com/basinworks/filings-tracker/internal/repository"
	"github.com/basinworks/filings-tracker/internal/store"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir    = flag.String("dir", "", "directory of filing PDFs to process (required)")
		out    = flag.String("out", "", "output XLSX path (defaults to <dir>/../contacts.xlsx)")
		dbPath = flag.String("db", "", "SQLite database path (defaults to <dir>/../filings.db)")
		inmem  = flag.Bool("inmem", false, "use an in-memory SQLite database")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "contacts.xlsx")
	}
	if *dbPath == "" {
		*dbPath = filepath.Join(filepath.Dir(*dir), "filings.db")
	}
	if *inmem {
		*dbPath = ":memory:"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if cfg.LLM.APIKey == "" {
		printError("Error: ANTHROPIC_API_KEY is required\n")
		os.Exit(1)
	}

	ctx := context.Background()
	if err := run(ctx, cfg, *dir, *out, *dbPath, logger); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *common.Config, dir, out, dbPath string, logger *slog.Logger) error {
	db, err := repository.OpenSQLite(ctx, dbPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	jobRunRepo := repository.NewSQLiteJobRunRepository(db, logger)
	contactRepo := repository.NewSQLiteContactRepository(db, logger)
	tracker := jobs.NewTracker(jobRunRepo, cfg.Jobs.ProjectOrigin, cfg.Jobs.StaleAfter, logger)

	docStore, err := store.NewFSStore(dir, logger)
	if err != nil {
		return err
	}

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

	processor := core.NewProcessor(logger, docStore, cascade, vision, retrier,
		contactRepo, tracker, cfg.Jobs.ProjectOrigin, cfg.LLM.DocumentDelay)

	jobID, metrics, err := processor.RunJob(ctx, "", constants.TriggerManual)
	if err != nil {
		return fmt.Errorf("job %s: %w", jobID, err)
	}

	fmt.Printf("job %s: %d/%d documents processed, %d contacts extracted\n",
		jobID, metrics.SuccessfullyProcessed, metrics.TotalFiles, metrics.ContactsExtracted)
	for _, s := range metrics.SkippedFiles {
		fmt.Printf("  skipped %s: %s\n", s.Key, s.Reason)
	}

	exporter := export.NewService(contactRepo, logger)
	xlsx, err := exporter.ExportContactsXLSX(ctx, cfg.Jobs.ProjectOrigin)
	if err != nil {
		return common.WrapError(err, "export")
	}
	if err := os.WriteFile(out, xlsx, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	fmt.Printf("wrote %s\n", out)
	return nil
}
