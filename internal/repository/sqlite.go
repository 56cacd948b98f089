package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/basinworks/filings-tracker/constants"
	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/entity"
)

// OpenSQLite opens (or creates) a local SQLite database and ensures the
// schema exists. Batch runs use this when no Postgres DSN is configured;
// array-valued columns are stored as JSON text.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	logger.Info("opening local database", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// modernc sqlite is single-writer; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS job_runs (
	id            TEXT PRIMARY KEY,
	job_type      TEXT NOT NULL,
	trigger_type  TEXT NOT NULL,
	status        TEXT NOT NULL,
	started_at    TIMESTAMP NOT NULL,
	completed_at  TIMESTAMP,
	error_message TEXT,
	metrics       TEXT
);
CREATE TABLE IF NOT EXISTS contacts (
	id                        TEXT PRIMARY KEY,
	name                      TEXT,
	first_name                TEXT,
	last_name                 TEXT,
	company                   TEXT,
	address                   TEXT,
	city                      TEXT,
	state                     TEXT,
	zip                       TEXT,
	unit                      TEXT,
	phones                    TEXT,
	emails                    TEXT,
	ownership_info            TEXT,
	mineral_rights_percentage REAL,
	ownership_type            TEXT,
	record_type               TEXT,
	document_section          TEXT,
	notes                     TEXT,
	is_legal_entity           BOOLEAN NOT NULL DEFAULT FALSE,
	acknowledged              BOOLEAN NOT NULL DEFAULT FALSE,
	source_file               TEXT NOT NULL,
	job_id                    TEXT NOT NULL,
	project_origin            TEXT NOT NULL,
	created_at                TIMESTAMP NOT NULL,
	updated_at                TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS contacts_origin_created ON contacts (project_origin, created_at);`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("creating sqlite schema: %w", err)
	}
	return nil
}

type sqliteJobRunRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteJobRunRepository(db *sql.DB, log *slog.Logger) JobRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &sqliteJobRunRepo{db: db, log: log}
}

func (r *sqliteJobRunRepo) Create(ctx context.Context, run *entity.JobRun) error {
	metrics, err := json.Marshal(run.Metrics)
	if err != nil {
		return fmt.Errorf("marshaling job metrics: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_type, trigger_type, status, started_at, metrics)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.JobType, string(run.TriggerType), string(run.Status), run.StartedAt, string(metrics))
	if err != nil {
		return fmt.Errorf("%w: inserting job run: %v", common.ErrPersistence, err)
	}
	r.log.Info("job_run.created", "job_id", run.ID, "job_type", run.JobType)
	return nil
}

func (r *sqliteJobRunRepo) Get(ctx context.Context, id string) (*entity.JobRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, job_type, trigger_type, status, started_at, completed_at, error_message, metrics
		FROM job_runs WHERE id = ?`, id)
	run, err := scanSQLiteJobRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading job run %s: %v", common.ErrPersistence, id, err)
	}
	return run, nil
}

func (r *sqliteJobRunRepo) UpdateStatus(ctx context.Context, id string, status constants.JobStatus, completedAt *time.Time, errorMessage *string, metrics *entity.JobMetrics) error {
	var metricsJSON *string
	if metrics != nil {
		b, err := json.Marshal(metrics)
		if err != nil {
			return fmt.Errorf("marshaling job metrics: %w", err)
		}
		s := string(b)
		metricsJSON = &s
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_runs
		SET status = ?,
		    completed_at = COALESCE(?, completed_at),
		    error_message = COALESCE(?, error_message),
		    metrics = COALESCE(?, metrics)
		WHERE id = ?`,
		string(status), completedAt, errorMessage, metricsJSON, id)
	if err != nil {
		return fmt.Errorf("%w: updating job run %s: %v", common.ErrPersistence, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *sqliteJobRunRepo) ListRunning(ctx context.Context) ([]entity.JobRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_type, trigger_type, status, started_at, completed_at, error_message, metrics
		FROM job_runs WHERE status = ?
		ORDER BY started_at`, string(constants.JobStatusRunning))
	if err != nil {
		return nil, fmt.Errorf("%w: listing running jobs: %v", common.ErrPersistence, err)
	}
	defer rows.Close()

	var runs []entity.JobRun
	for rows.Next() {
		run, err := scanSQLiteJobRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning job run: %v", common.ErrPersistence, err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanSQLiteJobRun(scan func(dest ...any) error) (*entity.JobRun, error) {
	var (
		run         entity.JobRun
		trigger     string
		status      string
		metricsJSON sql.NullString
	)
	err := scan(&run.ID, &run.JobType, &trigger, &status,
		&run.StartedAt, &run.CompletedAt, &run.ErrorMessage, &metricsJSON)
	if err != nil {
		return nil, err
	}
	run.TriggerType = constants.TriggerType(trigger)
	run.Status = constants.JobStatus(status)
	if metricsJSON.Valid && metricsJSON.String != "" {
		if err := json.Unmarshal([]byte(metricsJSON.String), &run.Metrics); err != nil {
			return nil, fmt.Errorf("decoding job metrics: %w", err)
		}
	}
	return &run, nil
}

type sqliteContactRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewSQLiteContactRepository(db *sql.DB, log *slog.Logger) ContactRepository {
	if log == nil {
		log = slog.Default()
	}
	return &sqliteContactRepo{db: db, log: log}
}

func (r *sqliteContactRepo) CreateBatch(ctx context.Context, contacts []entity.Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: opening transaction: %v", common.ErrPersistence, err)
	}
	defer tx.Rollback()

	for i := range contacts {
		c := &contacts[i]
		phones, _ := json.Marshal(c.Phones)
		emails, _ := json.Marshal(c.Emails)
		var ownership *string
		if c.OwnershipType != nil {
			s := string(*c.OwnershipType)
			ownership = &s
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO contacts (id, name, first_name, last_name, company,
				address, city, state, zip, unit, phones, emails,
				ownership_info, mineral_rights_percentage, ownership_type,
				record_type, document_section, notes, is_legal_entity, acknowledged,
				source_file, job_id, project_origin, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID.String(), c.Name, c.FirstName, c.LastName, c.Company,
			c.Address, c.City, c.State, c.Zip, c.Unit, string(phones), string(emails),
			c.OwnershipInfo, c.MineralRightsPercentage, ownership,
			c.RecordType, c.DocumentSection, c.Notes, c.IsLegalEntity, c.Acknowledged,
			c.SourceFile, c.JobID, c.ProjectOrigin, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return 0, fmt.Errorf("%w: inserting contact: %v", common.ErrPersistence, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing contacts: %v", common.ErrPersistence, err)
	}
	r.log.Info("contacts.persisted", "count", len(contacts), "source", contacts[0].SourceFile)
	return len(contacts), nil
}

func (r *sqliteContactRepo) List(ctx context.Context, projectOrigin string) ([]entity.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, first_name, last_name, company,
			address, city, state, zip, unit, phones, emails,
			ownership_info, mineral_rights_percentage, ownership_type,
			record_type, document_section, notes, is_legal_entity, acknowledged,
			source_file, job_id, project_origin, created_at, updated_at
		FROM contacts WHERE project_origin = ?
		ORDER BY created_at, id`, projectOrigin)
	if err != nil {
		return nil, fmt.Errorf("%w: listing contacts: %v", common.ErrPersistence, err)
	}
	defer rows.Close()

	var contacts []entity.Contact
	for rows.Next() {
		var (
			c         entity.Contact
			idText    string
			phones    sql.NullString
			emails    sql.NullString
			ownership sql.NullString
		)
		err := rows.Scan(&idText, &c.Name, &c.FirstName, &c.LastName, &c.Company,
			&c.Address, &c.City, &c.State, &c.Zip, &c.Unit, &phones, &emails,
			&c.OwnershipInfo, &c.MineralRightsPercentage, &ownership,
			&c.RecordType, &c.DocumentSection, &c.Notes, &c.IsLegalEntity, &c.Acknowledged,
			&c.SourceFile, &c.JobID, &c.ProjectOrigin, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning contact: %v", common.ErrPersistence, err)
		}
		if c.ID, err = uuid.Parse(idText); err != nil {
			return nil, fmt.Errorf("%w: bad contact id %q: %v", common.ErrPersistence, idText, err)
		}
		if phones.Valid && phones.String != "" {
			json.Unmarshal([]byte(phones.String), &c.Phones)
		}
		if emails.Valid && emails.String != "" {
			json.Unmarshal([]byte(emails.String), &c.Emails)
		}
		if ownership.Valid {
			ot := constants.OwnershipType(ownership.String)
			c.OwnershipType = &ot
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *sqliteContactRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting contacts: %v", common.ErrPersistence, err)
	}
	n, _ := res.RowsAffected()
	r.log.Info("contacts.deleted", "count", n)
	return int(n), nil
}

func (r *sqliteContactRepo) Acknowledge(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET acknowledged = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("%w: acknowledging contact %s: %v", common.ErrPersistence, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}
