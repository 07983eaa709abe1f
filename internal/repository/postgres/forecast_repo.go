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

// ForecastRepository implements domain.ForecastRepository using PostgreSQL
type ForecastRepository struct {
	pool *pgxpool.Pool
}

// NewForecastRepository creates a new ForecastRepository
func NewForecastRepository(pool *pgxpool.Pool) *ForecastRepository {
	return &ForecastRepository{pool: pool}
}

const forecastColumns = `
	id, workspace_id, name, description, expected_amount, currency, category_id,
	frequency, start_date, end_date, schedule, matching, stats, is_active,
	created_at, updated_at, deleted_at`

// Create creates a new forecast
func (r *ForecastRepository) Create(f *domain.Forecast) (*domain.Forecast, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(f.ExpectedAmount)
	if err != nil {
		return nil, err
	}
	schedule, matching, stats, err := marshalForecastBlobs(f)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO forecasts (
			workspace_id, name, description, expected_amount, currency, category_id,
			frequency, start_date, end_date, schedule, matching, stats, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + forecastColumns

	row := r.pool.QueryRow(ctx, query,
		f.WorkspaceID, f.Name, f.Description, amount, f.Currency, f.CategoryID,
		string(f.Frequency), f.StartDate, timePtrToPgDate(f.EndDate),
		schedule, matching, stats, f.IsActive,
	)

	return scanForecast(row)
}

// GetByID retrieves a forecast by ID
func (r *ForecastRepository) GetByID(workspaceID int32, id int32) (*domain.Forecast, error) {
	ctx := context.Background()

	query := `SELECT ` + forecastColumns + `
		FROM forecasts
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`

	f, err := scanForecast(r.pool.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrForecastNotFound
		}
		return nil, err
	}
	return f, nil
}

// ListByWorkspace retrieves all forecasts for a workspace
func (r *ForecastRepository) ListByWorkspace(workspaceID int32, activeOnly *bool) ([]*domain.Forecast, error) {
	ctx := context.Background()

	query := `SELECT ` + forecastColumns + `
		FROM forecasts
		WHERE workspace_id = $1 AND deleted_at IS NULL
		  AND ($2::boolean IS NOT TRUE OR is_active)
		ORDER BY id`

	activeFilter := activeOnly != nil && *activeOnly
	rows, err := r.pool.Query(ctx, query, workspaceID, activeFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectForecasts(rows)
}

// GetAllActive retrieves active forecasts across all workspaces
func (r *ForecastRepository) GetAllActive() ([]*domain.Forecast, error) {
	ctx := context.Background()

	query := `SELECT ` + forecastColumns + `
		FROM forecasts
		WHERE is_active AND deleted_at IS NULL
		ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectForecasts(rows)
}

// Update updates a forecast, including its recomputed statistics block
func (r *ForecastRepository) Update(f *domain.Forecast) (*domain.Forecast, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(f.ExpectedAmount)
	if err != nil {
		return nil, err
	}
	schedule, matching, stats, err := marshalForecastBlobs(f)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE forecasts
		SET name = $3, description = $4, expected_amount = $5, currency = $6,
		    category_id = $7, frequency = $8, start_date = $9, end_date = $10,
		    schedule = $11, matching = $12, stats = $13, is_active = $14,
		    updated_at = now()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING ` + forecastColumns

	row := r.pool.QueryRow(ctx, query,
		f.WorkspaceID, f.ID, f.Name, f.Description, amount, f.Currency,
		f.CategoryID, string(f.Frequency), f.StartDate, timePtrToPgDate(f.EndDate),
		schedule, matching, stats, f.IsActive,
	)

	updated, err := scanForecast(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrForecastNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes a forecast
func (r *ForecastRepository) Delete(workspaceID int32, id int32) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		UPDATE forecasts
		SET deleted_at = now(), updated_at = now()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`,
		workspaceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrForecastNotFound
	}
	return nil
}

func marshalForecastBlobs(f *domain.Forecast) ([]byte, []byte, []byte, error) {
	schedule, err := json.Marshal(f.Schedule)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal schedule: %w", err)
	}
	matching, err := json.Marshal(f.Matching)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal matching config: %w", err)
	}
	stats, err := json.Marshal(f.Stats)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal stats: %w", err)
	}
	return schedule, matching, stats, nil
}

func scanForecast(row pgx.Row) (*domain.Forecast, error) {
	var f domain.Forecast
	var amount pgtype.Numeric
	var frequency string
	var endDate pgtype.Date
	var schedule, matching, stats []byte
	var deletedAt pgtype.Timestamptz

	err := row.Scan(
		&f.ID, &f.WorkspaceID, &f.Name, &f.Description, &amount, &f.Currency,
		&f.CategoryID, &frequency, &f.StartDate, &endDate,
		&schedule, &matching, &stats, &f.IsActive,
		&f.CreatedAt, &f.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	f.ExpectedAmount = pgNumericToDecimal(amount)
	f.Frequency = domain.Frequency(frequency)
	f.EndDate = pgDateToTimePtr(endDate)
	f.DeletedAt = pgTimestampToTimePtr(deletedAt)

	if err := json.Unmarshal(schedule, &f.Schedule); err != nil {
		return nil, fmt.Errorf("unmarshal schedule: %w", err)
	}
	if err := json.Unmarshal(matching, &f.Matching); err != nil {
		return nil, fmt.Errorf("unmarshal matching config: %w", err)
	}
	if err := json.Unmarshal(stats, &f.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal stats: %w", err)
	}

	return &f, nil
}

func collectForecasts(rows pgx.Rows) ([]*domain.Forecast, error) {
	var result []*domain.Forecast
	for rows.Next() {
		f, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}
