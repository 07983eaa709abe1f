package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/ledgerline/forecast-backend/internal/domain"
)

// MockForecastRepository is a mock implementation of domain.ForecastRepository
type MockForecastRepository struct {
	Forecasts map[int32]*domain.Forecast
	NextID    int32
	UpdateFn  func(f *domain.Forecast) (*domain.Forecast, error)
}

// NewMockForecastRepository creates a new MockForecastRepository
func NewMockForecastRepository() *MockForecastRepository {
	return &MockForecastRepository{
		Forecasts: make(map[int32]*domain.Forecast),
		NextID:    1,
	}
}

// Create creates a new forecast
func (m *MockForecastRepository) Create(f *domain.Forecast) (*domain.Forecast, error) {
	f.ID = m.NextID
	m.NextID++
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	m.Forecasts[f.ID] = f
	return f, nil
}

// GetByID retrieves a forecast by ID
func (m *MockForecastRepository) GetByID(workspaceID int32, id int32) (*domain.Forecast, error) {
	f, ok := m.Forecasts[id]
	if !ok || f.WorkspaceID != workspaceID || f.DeletedAt != nil {
		return nil, domain.ErrForecastNotFound
	}
	return f, nil
}

// ListByWorkspace retrieves all forecasts for a workspace
func (m *MockForecastRepository) ListByWorkspace(workspaceID int32, activeOnly *bool) ([]*domain.Forecast, error) {
	var result []*domain.Forecast
	for _, f := range m.Forecasts {
		if f.WorkspaceID != workspaceID || f.DeletedAt != nil {
			continue
		}
		if activeOnly != nil && *activeOnly && !f.IsActive {
			continue
		}
		result = append(result, f)
	}
	return result, nil
}

// GetAllActive retrieves active forecasts across all workspaces
func (m *MockForecastRepository) GetAllActive() ([]*domain.Forecast, error) {
	var result []*domain.Forecast
	for _, f := range m.Forecasts {
		if f.IsActive && f.DeletedAt == nil {
			result = append(result, f)
		}
	}
	return result, nil
}

// Update updates a forecast
func (m *MockForecastRepository) Update(f *domain.Forecast) (*domain.Forecast, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(f)
	}
	if _, ok := m.Forecasts[f.ID]; !ok {
		return nil, domain.ErrForecastNotFound
	}
	f.UpdatedAt = time.Now()
	m.Forecasts[f.ID] = f
	return f, nil
}

// Delete soft-deletes a forecast
func (m *MockForecastRepository) Delete(workspaceID int32, id int32) error {
	f, ok := m.Forecasts[id]
	if !ok || f.WorkspaceID != workspaceID || f.DeletedAt != nil {
		return domain.ErrForecastNotFound
	}
	now := time.Now()
	f.DeletedAt = &now
	return nil
}

// AddForecast adds a forecast to the mock repository (helper for tests)
func (m *MockForecastRepository) AddForecast(f *domain.Forecast) {
	m.Forecasts[f.ID] = f
	if f.ID >= m.NextID {
		m.NextID = f.ID + 1
	}
}

// MockPeriodRepository is a mock implementation of domain.PeriodRepository
type MockPeriodRepository struct {
	Periods  map[int32]*domain.Period
	NextID   int32
	CreateFn func(p *domain.Period) (*domain.Period, error)
	UpdateFn func(p *domain.Period) (*domain.Period, error)
}

// NewMockPeriodRepository creates a new MockPeriodRepository
func NewMockPeriodRepository() *MockPeriodRepository {
	return &MockPeriodRepository{
		Periods: make(map[int32]*domain.Period),
		NextID:  1,
	}
}

// Create creates a new period
func (m *MockPeriodRepository) Create(p *domain.Period) (*domain.Period, error) {
	if m.CreateFn != nil {
		return m.CreateFn(p)
	}
	p.ID = m.NextID
	m.NextID++
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.Periods[p.ID] = p
	return p, nil
}

// GetByID retrieves a period by ID
func (m *MockPeriodRepository) GetByID(workspaceID int32, id int32) (*domain.Period, error) {
	p, ok := m.Periods[id]
	if !ok || p.WorkspaceID != workspaceID || p.DeletedAt != nil {
		return nil, domain.ErrPeriodNotFound
	}
	return p, nil
}

// ListByForecast retrieves all periods of a forecast
func (m *MockPeriodRepository) ListByForecast(workspaceID int32, forecastID int32) ([]*domain.Period, error) {
	var result []*domain.Period
	for _, p := range m.Periods {
		if p.WorkspaceID == workspaceID && p.ForecastID == forecastID && p.DeletedAt == nil {
			result = append(result, p)
		}
	}
	return result, nil
}

// Update updates a period
func (m *MockPeriodRepository) Update(p *domain.Period) (*domain.Period, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(p)
	}
	if _, ok := m.Periods[p.ID]; !ok {
		return nil, domain.ErrPeriodNotFound
	}
	p.UpdatedAt = time.Now()
	m.Periods[p.ID] = p
	return p, nil
}

// SoftDeleteByForecast soft-deletes all periods of a forecast
func (m *MockPeriodRepository) SoftDeleteByForecast(workspaceID int32, forecastID int32) error {
	now := time.Now()
	for _, p := range m.Periods {
		if p.WorkspaceID == workspaceID && p.ForecastID == forecastID && p.DeletedAt == nil {
			p.DeletedAt = &now
		}
	}
	return nil
}

// AddPeriod adds a period to the mock repository (helper for tests)
func (m *MockPeriodRepository) AddPeriod(p *domain.Period) {
	m.Periods[p.ID] = p
	if p.ID >= m.NextID {
		m.NextID = p.ID + 1
	}
}

// MockRecordRepository is a mock implementation of domain.RecordRepository
type MockRecordRepository struct {
	Records          map[uuid.UUID]*domain.IncomeRecord
	FindCandidatesFn func(filter domain.CandidateFilter) ([]*domain.IncomeRecord, error)
	ClaimFn          func(workspaceID int32, recordID uuid.UUID, periodID int32) error
}

// NewMockRecordRepository creates a new MockRecordRepository
func NewMockRecordRepository() *MockRecordRepository {
	return &MockRecordRepository{
		Records: make(map[uuid.UUID]*domain.IncomeRecord),
	}
}

// GetByID retrieves a record by ID
func (m *MockRecordRepository) GetByID(workspaceID int32, id uuid.UUID) (*domain.IncomeRecord, error) {
	r, ok := m.Records[id]
	if !ok || r.WorkspaceID != workspaceID {
		return nil, domain.ErrRecordNotFound
	}
	return r, nil
}

// FindCandidates returns unclaimed income records matching the filter
func (m *MockRecordRepository) FindCandidates(filter domain.CandidateFilter) ([]*domain.IncomeRecord, error) {
	if m.FindCandidatesFn != nil {
		return m.FindCandidatesFn(filter)
	}

	excluded := make(map[uuid.UUID]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}

	var result []*domain.IncomeRecord
	for _, r := range m.Records {
		if r.WorkspaceID != filter.WorkspaceID || r.CategoryID != filter.CategoryID {
			continue
		}
		if r.Type != domain.RecordTypeIncome || r.ClaimedByPeriodID != nil {
			continue
		}
		if r.Date.Before(filter.From) || r.Date.After(filter.To) {
			continue
		}
		if excluded[r.ID] {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

// Claim sets the exclusivity back-reference on a record
func (m *MockRecordRepository) Claim(workspaceID int32, recordID uuid.UUID, periodID int32) error {
	if m.ClaimFn != nil {
		return m.ClaimFn(workspaceID, recordID, periodID)
	}
	r, ok := m.Records[recordID]
	if !ok || r.WorkspaceID != workspaceID {
		return domain.ErrRecordNotFound
	}
	if r.ClaimedByPeriodID != nil {
		return domain.ErrRecordAlreadyMatched
	}
	r.ClaimedByPeriodID = &periodID
	return nil
}

// AddRecord adds a record to the mock repository (helper for tests)
func (m *MockRecordRepository) AddRecord(r *domain.IncomeRecord) {
	m.Records[r.ID] = r
}
