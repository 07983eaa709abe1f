package service

import (
	"strings"
	"time"

	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// ForecastService handles forecast lifecycle business logic
type ForecastService struct {
	forecastRepo domain.ForecastRepository
	periodRepo   domain.PeriodRepository
}

// NewForecastService creates a new ForecastService
func NewForecastService(forecastRepo domain.ForecastRepository, periodRepo domain.PeriodRepository) *ForecastService {
	return &ForecastService{
		forecastRepo: forecastRepo,
		periodRepo:   periodRepo,
	}
}

// CreateForecastInput holds the input for declaring a recurring income expectation
type CreateForecastInput struct {
	Name           string
	Description    string
	ExpectedAmount decimal.Decimal
	Currency       string
	CategoryID     int32
	Frequency      domain.Frequency
	StartDate      time.Time
	EndDate        *time.Time
	Schedule       domain.PaymentSchedule
	Matching       domain.MatchingConfig
}

// CreateForecast validates and creates a new forecast. Configuration errors
// are rejected here, never silently clamped.
func (s *ForecastService) CreateForecast(workspaceID int32, input CreateForecastInput) (*domain.Forecast, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxForecastNameLength {
		return nil, domain.ErrNameTooLong
	}

	if input.ExpectedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	if !input.Frequency.IsValid() {
		return nil, domain.ErrInvalidFrequency
	}

	if err := input.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := input.Matching.Validate(); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}

	forecast := &domain.Forecast{
		WorkspaceID:    workspaceID,
		Name:           name,
		Description:    strings.TrimSpace(input.Description),
		ExpectedAmount: input.ExpectedAmount,
		Currency:       currency,
		CategoryID:     input.CategoryID,
		Frequency:      input.Frequency,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Schedule:       input.Schedule,
		Matching:       input.Matching,
		IsActive:       true,
	}

	return s.forecastRepo.Create(forecast)
}

// ListForecasts retrieves all forecasts for a workspace
func (s *ForecastService) ListForecasts(workspaceID int32, activeOnly *bool) ([]*domain.Forecast, error) {
	return s.forecastRepo.ListByWorkspace(workspaceID, activeOnly)
}

// GetForecastByID retrieves a forecast by ID
func (s *ForecastService) GetForecastByID(workspaceID int32, id int32) (*domain.Forecast, error) {
	return s.forecastRepo.GetByID(workspaceID, id)
}

// UpdateForecastInput holds the input for updating a forecast. Tolerance
// changes only affect periods generated afterwards; existing periods keep
// the matching window computed at their creation.
type UpdateForecastInput struct {
	Name           string
	Description    string
	ExpectedAmount decimal.Decimal
	Currency       string
	CategoryID     int32
	Frequency      domain.Frequency
	StartDate      time.Time
	EndDate        *time.Time
	Schedule       domain.PaymentSchedule
	Matching       domain.MatchingConfig
	IsActive       bool
}

// UpdateForecast updates an existing forecast
func (s *ForecastService) UpdateForecast(workspaceID int32, id int32, input UpdateForecastInput) (*domain.Forecast, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxForecastNameLength {
		return nil, domain.ErrNameTooLong
	}

	if input.ExpectedAmount.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidAmount
	}

	if !input.Frequency.IsValid() {
		return nil, domain.ErrInvalidFrequency
	}

	if err := input.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := input.Matching.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.forecastRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}

	existing.Name = name
	existing.Description = strings.TrimSpace(input.Description)
	existing.ExpectedAmount = input.ExpectedAmount
	if currency := strings.ToUpper(strings.TrimSpace(input.Currency)); currency != "" {
		existing.Currency = currency
	}
	existing.CategoryID = input.CategoryID
	existing.Frequency = input.Frequency
	existing.StartDate = input.StartDate
	existing.EndDate = input.EndDate
	existing.Schedule = input.Schedule
	existing.Matching = input.Matching
	existing.IsActive = input.IsActive

	return s.forecastRepo.Update(existing)
}

// DeleteForecast soft-deletes a forecast and cascades over its periods.
// History stays reconcilable; nothing is hard-deleted.
func (s *ForecastService) DeleteForecast(workspaceID int32, id int32) error {
	if err := s.forecastRepo.Delete(workspaceID, id); err != nil {
		return err
	}
	return s.periodRepo.SoftDeleteByForecast(workspaceID, id)
}
