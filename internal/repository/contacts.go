package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/basinworks/filings-tracker/internal/common"
	"github.com/basinworks/filings-tracker/internal/entity"
)

type ContactRepository interface {
	CreateBatch(ctx context.Context, contacts []entity.Contact) (int, error)
	List(ctx context.Context, projectOrigin string) ([]entity.Contact, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error)
	Acknowledge(ctx context.Context, id uuid.UUID) error
}

type contactRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewContactRepository(pool *pgxpool.Pool, log *slog.Logger) ContactRepository {
	if log == nil {
		log = slog.Default()
	}
	return &contactRepo{pool: pool, log: log}
}

const contactColumns = `id, name, first_name, last_name, company,
	address, city, state, zip, unit, phones, emails,
	ownership_info, mineral_rights_percentage, ownership_type,
	record_type, document_section, notes, is_legal_entity, acknowledged,
	source_file, job_id, project_origin, created_at, updated_at`

// CreateBatch inserts contacts one by one inside a transaction. A batch is
// all-or-nothing; the caller counts a failed batch as processing_failed for
// its document rather than aborting the run.
func (r *contactRepo) CreateBatch(ctx context.Context, contacts []entity.Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: opening transaction: %v", common.ErrPersistence, err)
	}
	defer tx.Rollback(ctx)

	for i := range contacts {
		c := &contacts[i]
		_, err := tx.Exec(ctx, `
			INSERT INTO contacts (`+contactColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`,
			c.ID, c.Name, c.FirstName, c.LastName, c.Company,
			c.Address, c.City, c.State, c.Zip, c.Unit, c.Phones, c.Emails,
			c.OwnershipInfo, c.MineralRightsPercentage, c.OwnershipType,
			c.RecordType, c.DocumentSection, c.Notes, c.IsLegalEntity, c.Acknowledged,
			c.SourceFile, c.JobID, c.ProjectOrigin, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			r.log.Error("contact insert failed", "contact", c.DisplayName(), "source", c.SourceFile, "err", err)
			return 0, fmt.Errorf("%w: inserting contact: %v", common.ErrPersistence, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: committing contacts: %v", common.ErrPersistence, err)
	}
	r.log.Info("contacts.persisted", "count", len(contacts), "source", contacts[0].SourceFile)
	return len(contacts), nil
}

// List returns every contact for a project origin in created_at ascending
// order, which is the order deduplication expects.
func (r *contactRepo) List(ctx context.Context, projectOrigin string) ([]entity.Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contacts WHERE project_origin = $1
		ORDER BY created_at, id`, projectOrigin)
	if err != nil {
		return nil, fmt.Errorf("%w: listing contacts: %v", common.ErrPersistence, err)
	}
	defer rows.Close()

	var contacts []entity.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning contact: %v", common.ErrPersistence, err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (r *contactRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting contacts: %v", common.ErrPersistence, err)
	}
	r.log.Info("contacts.deleted", "count", tag.RowsAffected())
	return int(tag.RowsAffected()), nil
}

func (r *contactRepo) Acknowledge(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contacts SET acknowledged = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: acknowledging contact %s: %v", common.ErrPersistence, id, err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row) (*entity.Contact, error) {
	var c entity.Contact
	err := row.Scan(&c.ID, &c.Name, &c.FirstName, &c.LastName, &c.Company,
		&c.Address, &c.City, &c.State, &c.Zip, &c.Unit, &c.Phones, &c.Emails,
		&c.OwnershipInfo, &c.MineralRightsPercentage, &c.OwnershipType,
		&c.RecordType, &c.DocumentSection, &c.Notes, &c.IsLegalEntity, &c.Acknowledged,
		&c.SourceFile, &c.JobID, &c.ProjectOrigin, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
