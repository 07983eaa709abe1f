package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerline/forecast-backend/internal/domain"
)

// RecordRepository implements domain.RecordRepository using PostgreSQL.
// Income records are written by the surrounding application; this engine
// only reads them and sets the claim back-reference.
type RecordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

const recordColumns = `
	id, workspace_id, category_id, type, amount, date, description, tags,
	claimed_by_period_id, created_at`

// GetByID retrieves a record by ID
func (r *RecordRepository) GetByID(workspaceID int32, id uuid.UUID) (*domain.IncomeRecord, error) {
	ctx := context.Background()

	query := `SELECT ` + recordColumns + `
		FROM income_records
		WHERE workspace_id = $1 AND id = $2`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

// FindCandidates returns unclaimed income records in the category and date
// range, excluding the given ids
func (r *RecordRepository) FindCandidates(filter domain.CandidateFilter) ([]*domain.IncomeRecord, error) {
	ctx := context.Background()

	query := `SELECT ` + recordColumns + `
		FROM income_records
		WHERE workspace_id = $1
		  AND category_id = $2
		  AND type = 'income'
		  AND claimed_by_period_id IS NULL
		  AND date >= $3 AND date <= $4
		  AND NOT (id = ANY($5))
		ORDER BY date`

	exclude := filter.ExcludeIDs
	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	rows, err := r.pool.Query(ctx, query,
		filter.WorkspaceID, filter.CategoryID, filter.From, filter.To, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.IncomeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Claim sets the exclusivity back-reference. The WHERE guard makes the claim
// atomic: a concurrent claim of the same record loses and gets a conflict.
func (r *RecordRepository) Claim(workspaceID int32, recordID uuid.UUID, periodID int32) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		UPDATE income_records
		SET claimed_by_period_id = $3
		WHERE workspace_id = $1 AND id = $2 AND claimed_by_period_id IS NULL`,
		workspaceID, recordID, periodID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already claimed; distinguish for the caller
		if _, err := r.GetByID(workspaceID, recordID); err != nil {
			return err
		}
		return domain.ErrRecordAlreadyMatched
	}
	return nil
}

func scanRecord(row pgx.Row) (*domain.IncomeRecord, error) {
	var rec domain.IncomeRecord
	var recordType string
	var amount pgtype.Numeric
	var claimedBy pgtype.Int4

	err := row.Scan(
		&rec.ID, &rec.WorkspaceID, &rec.CategoryID, &recordType, &amount,
		&rec.Date, &rec.Description, &rec.Tags, &claimedBy, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Amount = pgNumericToDecimal(amount)
	rec.Type = domain.RecordType(recordType)
	if claimedBy.Valid {
		rec.ClaimedByPeriodID = &claimedBy.Int32
	}

	return &rec, nil
}
