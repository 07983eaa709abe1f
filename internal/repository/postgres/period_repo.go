package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ledgerline/forecast-backend/internal/domain"
)

// PeriodRepository implements domain.PeriodRepository using PostgreSQL.
// Matched records are embedded in the period row as JSONB; the due-date
// columns are written at creation and never touched by Update.
type PeriodRepository struct {
	pool *pgxpool.Pool
}

// NewPeriodRepository creates a new PeriodRepository
func NewPeriodRepository(pool *pgxpool.Pool) *PeriodRepository {
	return &PeriodRepository{pool: pool}
}

const periodColumns = `
	id, forecast_id, workspace_id, number, start_date, end_date,
	expected_amount, expected_payment_date, window_start, window_end,
	matches, actual_amount, status, achievement_rate, health_score,
	created_at, updated_at, deleted_at`

// Create creates a new period
func (r *PeriodRepository) Create(p *domain.Period) (*domain.Period, error) {
	ctx := context.Background()

	expected, err := decimalToPgNumeric(p.ExpectedAmount)
	if err != nil {
		return nil, err
	}
	actual, err := decimalToPgNumeric(p.ActualAmount)
	if err != nil {
		return nil, err
	}
	rate, err := decimalToPgNumeric(p.AchievementRate)
	if err != nil {
		return nil, err
	}
	matches, err := json.Marshal(p.Matches)
	if err != nil {
		return nil, fmt.Errorf("marshal matches: %w", err)
	}

	query := `
		INSERT INTO forecast_periods (
			forecast_id, workspace_id, number, start_date, end_date,
			expected_amount, expected_payment_date, window_start, window_end,
			matches, actual_amount, status, achievement_rate, health_score
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + periodColumns

	row := r.pool.QueryRow(ctx, query,
		p.ForecastID, p.WorkspaceID, p.Number, p.StartDate, p.EndDate,
		expected, p.ExpectedPaymentDate, p.WindowStart, p.WindowEnd,
		matches, actual, string(p.Status), rate, p.HealthScore,
	)

	return scanPeriod(row)
}

// GetByID retrieves a period by ID
func (r *PeriodRepository) GetByID(workspaceID int32, id int32) (*domain.Period, error) {
	ctx := context.Background()

	query := `SELECT ` + periodColumns + `
		FROM forecast_periods
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`

	p, err := scanPeriod(r.pool.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPeriodNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByForecast retrieves all periods of a forecast in sequence order
func (r *PeriodRepository) ListByForecast(workspaceID int32, forecastID int32) ([]*domain.Period, error) {
	ctx := context.Background()

	query := `SELECT ` + periodColumns + `
		FROM forecast_periods
		WHERE workspace_id = $1 AND forecast_id = $2 AND deleted_at IS NULL
		ORDER BY number`

	rows, err := r.pool.Query(ctx, query, workspaceID, forecastID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Update persists the period's matches and derived fields. The window and
// expected payment date columns are deliberately not in the SET list.
func (r *PeriodRepository) Update(p *domain.Period) (*domain.Period, error) {
	ctx := context.Background()

	actual, err := decimalToPgNumeric(p.ActualAmount)
	if err != nil {
		return nil, err
	}
	rate, err := decimalToPgNumeric(p.AchievementRate)
	if err != nil {
		return nil, err
	}
	matches, err := json.Marshal(p.Matches)
	if err != nil {
		return nil, fmt.Errorf("marshal matches: %w", err)
	}

	query := `
		UPDATE forecast_periods
		SET matches = $3, actual_amount = $4, status = $5,
		    achievement_rate = $6, health_score = $7, updated_at = now()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING ` + periodColumns

	updated, err := scanPeriod(r.pool.QueryRow(ctx, query,
		p.WorkspaceID, p.ID, matches, actual, string(p.Status), rate, p.HealthScore,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPeriodNotFound
		}
		return nil, err
	}
	return updated, nil
}

// SoftDeleteByForecast soft-deletes all periods of a forecast
func (r *PeriodRepository) SoftDeleteByForecast(workspaceID int32, forecastID int32) error {
	ctx := context.Background()

	_, err := r.pool.Exec(ctx, `
		UPDATE forecast_periods
		SET deleted_at = now(), updated_at = now()
		WHERE workspace_id = $1 AND forecast_id = $2 AND deleted_at IS NULL`,
		workspaceID, forecastID)
	return err
}

func scanPeriod(row pgx.Row) (*domain.Period, error) {
	var p domain.Period
	var expected, actual, rate pgtype.Numeric
	var status string
	var matches []byte
	var deletedAt pgtype.Timestamptz

	err := row.Scan(
		&p.ID, &p.ForecastID, &p.WorkspaceID, &p.Number, &p.StartDate, &p.EndDate,
		&expected, &p.ExpectedPaymentDate, &p.WindowStart, &p.WindowEnd,
		&matches, &actual, &status, &rate, &p.HealthScore,
		&p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ExpectedAmount = pgNumericToDecimal(expected)
	p.ActualAmount = pgNumericToDecimal(actual)
	p.AchievementRate = pgNumericToDecimal(rate)
	p.Status = domain.PeriodStatus(status)
	p.DeletedAt = pgTimestampToTimePtr(deletedAt)

	if err := json.Unmarshal(matches, &p.Matches); err != nil {
		return nil, fmt.Errorf("unmarshal matches: %w", err)
	}
	if p.Matches == nil {
		p.Matches = []domain.MatchedRecord{}
	}

	return &p, nil
}
