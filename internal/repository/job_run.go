package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/entity"
)

type JobRunRepository interface {
	Create(ctx context.Context, run *entity.JobRun) error
	Get(ctx context.Context, id string) (*entity.JobRun, error)
	UpdateStatus(ctx context.Context, id string, status constants.JobStatus, completedAt *time.Time, errorMessage *string, metrics *entity.JobMetrics) error
	ListRunning(ctx context.Context) ([]entity.JobRun, error)
}

type jobRunRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewJobRunRepository(pool *pgxpool.Pool, log *slog.Logger) JobRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRunRepo{pool: pool, log: log}
}

func (r *jobRunRepo) Create(ctx context.Context, run *entity.JobRun) error {
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("marshaling job metrics: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO job_runs (id, job_type, trigger_type, status, started_at, metrics)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.JobType, string(run.TriggerType), string(run.Status), run.StartedAt, metrics)
	if err != nil {
		r.log.Error("job_run create failed", "job_id", run.ID, "err", err)
		return fmt.Errorf("%w: inserting job run: %v", common.ErrPersistence, err)
	}
	r.log.Info("job_run.created", "job_id", run.ID, "job_type", run.JobType, "trigger", run.TriggerType)
	return nil
}

func (r *jobRunRepo) Get(ctx context.Context, id string) (*entity.JobRun, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, job_type, trigger_type, status, started_at, completed_at, error_message, metrics
		FROM job_runs WHERE id = $1`, id)
	run, err := scanJobRun(row)
	if err == pgx.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading job run %s: %v", common.ErrPersistence, id, err)
	}
	return run, nil
}

func (r *jobRunRepo) UpdateStatus(ctx context.Context, id string, status constants.JobStatus, completedAt *time.Time, errorMessage *string, metrics *entity.JobMetrics) error {
	var metricsJSON []byte
	if metrics != nil {
		b, err := json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("marshaling job metrics: %w", err)
		}
		metricsJSON = b
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE job_runs
		SET status = $2,
		    completed_at = COALESCE($3, completed_at),
		    error_message = COALESCE($4, error_message),
		    metrics = COALESCE($5, metrics)
		WHERE id = $1`,
		id, string(status), completedAt, errorMessage, metricsJSON)
	if err != nil {
		r.log.Error("job_run update failed", "job_id", id, "status", status, "err", err)
		return fmt.Errorf("%w: updating job run %s: %v", common.ErrPersistence, id, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *jobRunRepo) ListRunning(ctx context.Context) ([]entity.JobRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_type, trigger_type, status, started_at, completed_at, error_message, metrics
		FROM job_runs WHERE status = $1
		ORDER BY started_at`, string(constants.JobStatusRunning))
	if err != nil {
		return nil, fmt.Errorf("%w: listing running jobs: %v", common.ErrPersistence, err)
	}
	defer rows.Close()

	var runs []entity.JobRun
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning job run: %v", common.ErrPersistence, err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanJobRun(row pgx.Row) (*entity.JobRun, error) {
	var (
		run         entity.JobRun
		trigger     string
		status      string
		metricsJSON []byte
	)
	err := row.Scan(&run.ID, &run.JobType, &trigger, &status,
		&run.StartedAt, &run.CompletedAt, &run.ErrorMessage, &metricsJSON)
	if err != nil {
		return nil, err
	}
	run.TriggerType = constants.TriggerType(trigger)
	run.Status = constants.JobStatus(status)
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &run.Metrics); err != nil {
			return nil, fmt.Errorf("decoding job metrics: %w", err)
		}
	}
	return &run, nil
}
