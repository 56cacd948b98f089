package dedup

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/entity"
	"github.com/basinworks/filings-tracker/internal/jobs"
	"github.com/basinworks/filings-tracker/internal/repository"
)

// RunReport is the outcome of one store-backed deduplication run.
type RunReport struct {
	JobID        string `json:"job_id"`
	Result       Result `json:"result"`
	DeletedCount int    `json:"deleted_count"`
}

// Service runs the engine against the contact store as a tracked job.
type Service struct {
	engine        *Engine
	contactsRepo  repository.ContactRepository
	tracker       *jobs.Tracker
	projectOrigin string
	logger        *slog.Logger
}

func NewService(engine *Engine, contactsRepo repository.ContactRepository, tracker *jobs.Tracker, projectOrigin string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:        engine,
		contactsRepo:  contactsRepo,
		tracker:       tracker,
		projectOrigin: projectOrigin,
		logger:        logger,
	}
}

// Run loads every contact for the project origin, deduplicates, and unless
// dryRun is set deletes the duplicate rows. Dry runs read but never write,
// so repeating one is always safe.
func (s *Service) Run(ctx context.Context, mode constants.DedupMode, dryRun bool, trigger constants.TriggerType) (report RunReport, err error) {
	jobID, err := s.tracker.Start(ctx, constants.JobTypeDedup, trigger)
	if err != nil {
		return report, err
	}
	report.JobID = jobID

	metrics := entity.JobMetrics{}
	defer func() {
		if err != nil {
			if failErr := s.tracker.Fail(ctx, jobID, err, &metrics); failErr != nil {
				s.logger.Error("dedup.finalize.failed", "job_id", jobID, "err", failErr)
			}
			return
		}
		err = s.tracker.Complete(ctx, jobID, metrics)
	}()

	all, err := s.contactsRepo.List(ctx, s.projectOrigin)
	if err != nil {
		return report, err
	}
	metrics.TotalFiles = len(all)

	report.Result, err = s.engine.Deduplicate(all, mode, dryRun)
	if err != nil {
		return report, err
	}
	metrics.SuccessfullyProcessed = len(report.Result.Unique)

	if dryRun || len(report.Result.Duplicates) == 0 {
		return report, nil
	}

	ids := make([]uuid.UUID, len(report.Result.Duplicates))
	for i, d := range report.Result.Duplicates {
		ids[i] = d.ContactID
	}
	report.DeletedCount, err = s.contactsRepo.DeleteByIDs(ctx, ids)
	if err != nil {
		return report, err
	}
	s.logger.Info("dedup.removed", "job_id", jobID, "deleted", report.DeletedCount)
	return report, nil
}
