package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/dedup"
	"github.com/basinworks/filings-tracker/internal/jobs"
	"github.com/basinworks/filings-tracker/internal/repository"
)

func main() {
	var (
		mode   = flag.String("mode", "strict", "match strategy: strict, name-only, name-company, fuzzy")
		dryRun = flag.Bool("dry-run", true, "report duplicates without deleting them")
		dbPath = flag.String("db", "", "SQLite database path (uses DB_URL Postgres when empty)")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	ctx := context.Background()

	var (
		jobRunRepo  repository.JobRunRepository
		contactRepo repository.ContactRepository
	)
	if *dbPath != "" {
		db, err := repository.OpenSQLite(ctx, *dbPath, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		jobRunRepo = repository.NewSQLiteJobRunRepository(db, logger)
		contactRepo = repository.NewSQLiteContactRepository(db, logger)
	} else {
		if cfg.Database.DSN == "" {
			fmt.Fprintln(os.Stderr, "Error: set --db or DB_URL")
			os.Exit(1)
		}
		pool, err := repository.Open(ctx, repository.Config{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		}, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer repository.Close(pool, logger)
		jobRunRepo = repository.NewJobRunRepository(pool, logger)
		contactRepo = repository.NewContactRepository(pool, logger)
	}

	tracker := jobs.NewTracker(jobRunRepo, cfg.Jobs.ProjectOrigin, cfg.Jobs.StaleAfter, logger)
	service := dedup.NewService(dedup.NewEngine(logger), contactRepo, tracker, cfg.Jobs.ProjectOrigin, logger)

	report, err := service.Run(ctx, constants.DedupMode(*mode), *dryRun, constants.TriggerManual)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("job %s (%s, dry_run=%t): %d unique, %d duplicates\n",
		report.JobID, *mode, *dryRun, len(report.Result.Unique), len(report.Result.Duplicates))
	for _, d := range report.Result.Duplicates {
		fmt.Printf("  %s -> %s (%s)\n", d.ContactID, d.CanonicalID, d.MatchReason)
	}
	if !*dryRun {
		fmt.Printf("deleted %d contacts\n", report.DeletedCount)
	}
}
