package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/entity"
	"github.com/basinworks/filings-tracker/internal/repository"
)

// DefaultStaleAfter is how long a run may sit in running before reclamation
// treats it as orphaned by a dead process.
const DefaultStaleAfter = 24 * time.Hour

// Tracker owns the lifecycle of job_run rows. Run state lives in the
// database, never in process memory, so a restart can always see and
// reclaim what a crashed predecessor left behind.
type Tracker struct {
	repo          repository.JobRunRepository
	projectOrigin string
	staleAfter    time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

func NewTracker(repo repository.JobRunRepository, projectOrigin string, staleAfter time.Duration, logger *slog.Logger) *Tracker {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		repo:          repo,
		projectOrigin: projectOrigin,
		staleAfter:    staleAfter,
		now:           time.Now,
		logger:        logger,
	}
}

// Start creates a running job_run row and returns its id. Creation and
// start are deliberately fused: work begins in the same call that records
// the run, so a row is never left sitting in pending. The pending status
// exists for rows created by other writers (the schema default); the
// transition table still accepts it.
func (t *Tracker) Start(ctx context.Context, jobType string, trigger constants.TriggerType) (string, error) {
	now := t.now()
	id, err := NewJobID(t.projectOrigin, now)
	if err != nil {
		return "", err
	}
	run := &entity.JobRun{
		ID:          id,
		JobType:     jobType,
		TriggerType: trigger,
		Status:      constants.JobStatusRunning,
		StartedAt:   now,
	}
	if err := t.repo.Create(ctx, run); err != nil {
		return "", err
	}
	t.logger.Info("job.started", "job_id", id, "job_type", jobType, "trigger", trigger)
	return id, nil
}

// Complete finalizes a run as completed with its metrics attached.
func (t *Tracker) Complete(ctx context.Context, jobID string, metrics entity.JobMetrics) error {
	if err := t.transition(ctx, jobID, constants.JobStatusCompleted, nil, &metrics); err != nil {
		return err
	}
	t.logger.Info("job.completed", "job_id", jobID,
		"total", metrics.TotalFiles, "processed", metrics.SuccessfullyProcessed,
		"contacts", metrics.ContactsExtracted)
	return nil
}

// Fail finalizes a run as failed. Metrics collected before the failure are
// preserved on the record rather than discarded.
func (t *Tracker) Fail(ctx context.Context, jobID string, cause error, partial *entity.JobMetrics) error {
	msg := cause.Error()
	if err := t.transition(ctx, jobID, constants.JobStatusFailed, &msg, partial); err != nil {
		return err
	}
	t.logger.Error("job.failed", "job_id", jobID, "err", cause)
	return nil
}

func (t *Tracker) transition(ctx context.Context, jobID string, to constants.JobStatus, errorMessage *string, metrics *entity.JobMetrics) error {
	run, err := t.repo.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if !run.Status.CanTransition(to) {
		return fmt.Errorf("job %s: illegal transition %s -> %s", jobID, run.Status, to)
	}
	completed := t.now()
	return t.repo.UpdateStatus(ctx, jobID, to, &completed, errorMessage, metrics)
}

// ReclaimStale fails every run that has been running longer than the stale
// window. Called on process startup so crashed runs cannot stay "running"
// forever. Returns how many runs were reclaimed.
func (t *Tracker) ReclaimStale(ctx context.Context) (int, error) {
	running, err := t.repo.ListRunning(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := t.now().Add(-t.staleAfter)
	reclaimed := 0
	for i := range running {
		run := &running[i]
		if run.StartedAt.After(cutoff) {
			continue
		}
		msg := fmt.Sprintf("reclaimed: still running after %s, presumed orphaned at %s",
			t.staleAfter, t.now().UTC().Format(time.RFC3339))
		completed := t.now()
		if err := t.repo.UpdateStatus(ctx, run.ID, constants.JobStatusFailed, &completed, &msg, nil); err != nil {
			t.logger.Error("job.reclaim.failed", "job_id", run.ID, "err", err)
			continue
		}
		t.logger.Warn("job.reclaimed", "job_id", run.ID, "started_at", run.StartedAt)
		reclaimed++
	}
	return reclaimed, nil
}
