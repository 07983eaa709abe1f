package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/ledgerline/forecast-backend/internal/middleware"
	"github.com/ledgerline/forecast-backend/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ForecastHandler handles forecast HTTP requests
type ForecastHandler struct {
	forecastService *service.ForecastService
	orchestrator    *service.ForecastOrchestrator
}

// NewForecastHandler creates a new ForecastHandler
func NewForecastHandler(forecastService *service.ForecastService, orchestrator *service.ForecastOrchestrator) *ForecastHandler {
	return &ForecastHandler{
		forecastService: forecastService,
		orchestrator:    orchestrator,
	}
}

// ScheduleRequest represents a payment schedule in request bodies
type ScheduleRequest struct {
	Kind             string     `json:"kind"`
	DayOfMonth       int32      `json:"dayOfMonth,omitempty"`
	FixedDate        *time.Time `json:"fixedDate,omitempty"`
	WorkingDayOffset int32      `json:"workingDayOffset,omitempty"`
	CustomRule       string     `json:"customRule,omitempty"`
	Fallback         string     `json:"fallback"`
}

// MatchingRequest represents a matching config in request bodies
type MatchingRequest struct {
	AmountTolerance   string   `json:"amountTolerance"`
	DateToleranceDays int32    `json:"dateToleranceDays"`
	AutoMatch         bool     `json:"autoMatch"`
	Keywords          []string `json:"keywords,omitempty"`
}

// CreateForecastRequest represents the create forecast request body
type CreateForecastRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	ExpectedAmount string          `json:"expectedAmount"`
	Currency       string          `json:"currency,omitempty"`
	CategoryID     int32           `json:"categoryId"`
	Frequency      string          `json:"frequency"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        *time.Time      `json:"endDate,omitempty"`
	Schedule       ScheduleRequest `json:"schedule"`
	Matching       MatchingRequest `json:"matching"`
}

// UpdateForecastRequest represents the update forecast request body
type UpdateForecastRequest struct {
	CreateForecastRequest
	IsActive bool `json:"isActive"`
}

// ForecastResponse represents a forecast in API responses
type ForecastResponse struct {
	ID             int32                  `json:"id"`
	WorkspaceID    int32                  `json:"workspaceId"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	ExpectedAmount string                 `json:"expectedAmount"`
	Currency       string                 `json:"currency"`
	CategoryID     int32                  `json:"categoryId"`
	Frequency      string                 `json:"frequency"`
	StartDate      string                 `json:"startDate"`
	EndDate        *string                `json:"endDate,omitempty"`
	Schedule       domain.PaymentSchedule `json:"schedule"`
	Matching       domain.MatchingConfig  `json:"matching"`
	Stats          domain.ForecastStats   `json:"stats"`
	IsActive       bool                   `json:"isActive"`
	CreatedAt      string                 `json:"createdAt"`
	UpdatedAt      string                 `json:"updatedAt"`
}

// ForecastListResponse represents the list response
type ForecastListResponse struct {
	Data []ForecastResponse `json:"data"`
}

// PeriodResponse represents a period in API responses
type PeriodResponse struct {
	ID                  int32                  `json:"id"`
	ForecastID          int32                  `json:"forecastId"`
	Number              int32                  `json:"number"`
	StartDate           string                 `json:"startDate"`
	EndDate             string                 `json:"endDate"`
	ExpectedAmount      string                 `json:"expectedAmount"`
	ExpectedPaymentDate string                 `json:"expectedPaymentDate"`
	WindowStart         string                 `json:"windowStart"`
	WindowEnd           string                 `json:"windowEnd"`
	Matches             []domain.MatchedRecord `json:"matches"`
	ActualAmount        string                 `json:"actualAmount"`
	Status              string                 `json:"status"`
	AchievementRate     string                 `json:"achievementRate"`
	HealthScore         float64                `json:"healthScore"`
}

// PeriodListResponse represents the period list response
type PeriodListResponse struct {
	Data []PeriodResponse `json:"data"`
}

// GeneratePeriodsRequest represents the generate periods request body
type GeneratePeriodsRequest struct {
	Count int `json:"count"`
}

// ArchiveRecordRequest represents the manual archive request body
type ArchiveRecordRequest struct {
	PeriodID *int32 `json:"periodId,omitempty"`
}

// CreateForecast handles POST /api/v1/forecasts
func (h *ForecastHandler) CreateForecast(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateForecastRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, err := toCreateInput(req)
	if err != nil {
		return NewValidationError(c, err.Error(), nil)
	}

	forecast, err := h.forecastService.CreateForecast(workspaceID, input)
	if err != nil {
		return h.handleServiceError(c, err, workspaceID, "create forecast")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("forecast_id", forecast.ID).Str("name", forecast.Name).Msg("Forecast created")

	return c.JSON(http.StatusCreated, toForecastResponse(forecast))
}

// GetForecasts handles GET /api/v1/forecasts
func (h *ForecastHandler) GetForecasts(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var activeOnly *bool
	if activeParam := c.QueryParam("active"); activeParam != "" {
		active := activeParam == "true"
		activeOnly = &active
	}

	forecasts, err := h.forecastService.ListForecasts(workspaceID, activeOnly)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to list forecasts")
		return NewInternalError(c, "Failed to list forecasts")
	}

	response := make([]ForecastResponse, len(forecasts))
	for i, f := range forecasts {
		response[i] = toForecastResponse(f)
	}

	return c.JSON(http.StatusOK, ForecastListResponse{Data: response})
}

// GetForecast handles GET /api/v1/forecasts/:id
func (h *ForecastHandler) GetForecast(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid forecast id", nil)
	}

	forecast, err := h.forecastService.GetForecastByID(workspaceID, id)
	if err != nil {
		return h.handleServiceError(c, err, workspaceID, "get forecast")
	}

	return c.JSON(http.StatusOK, toForecastResponse(forecast))
}

// UpdateForecast handles PUT /api/v1/forecasts/:id
func (h *ForecastHandler) UpdateForecast(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid forecast id", nil)
	}

	var req UpdateForecastRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	createInput, err := toCreateInput(req.CreateForecastRequest)
	if err != nil {
		return NewValidationError(c, err.Error(), nil)
	}

	input := service.UpdateForecastInput{
		Name:           createInput.Name,
		Description:    createInput.Description,
		ExpectedAmount: createInput.ExpectedAmount,
		Currency:       createInput.Currency,
		CategoryID:     createInput.CategoryID,
		Frequency:      createInput.Frequency,
		StartDate:      createInput.StartDate,
		EndDate:        createInput.EndDate,
		Schedule:       createInput.Schedule,
		Matching:       createInput.Matching,
		IsActive:       req.IsActive,
	}

	forecast, err := h.forecastService.UpdateForecast(workspaceID, id, input)
	if err != nil {
		return h.handleServiceError(c, err, workspaceID, "update forecast")
	}

	return c.JSON(http.StatusOK, toForecastResponse(forecast))
}

// DeleteForecast handles DELETE /api/v1/forecasts/:id
func (h *ForecastHandler) DeleteForecast(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid forecast id", nil)
	}

	if err := h.forecastService.DeleteForecast(workspaceID, id); err != nil {
		return h.handleServiceError(c, err, workspaceID, "delete forecast")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("forecast_id", id).Msg("Forecast deleted")

	return c.NoContent(http.StatusNoContent)
}

// GeneratePeriods handles POST /api/v1/forecasts/:id/periods/generate
func (h *ForecastHandler) GeneratePeriods(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid forecast id", nil)
	}

	var req GeneratePeriodsRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Count <= 0 {
		return NewValidationError(c, "Count must be positive", []ValidationError{
			{Field: "count", Message: "Must be a positive integer"},
		})
	}

	result, err := h.orchestrator.GeneratePeriods(workspaceID, id, req.Count)
	if err != nil {
		// Partial success still reports what was generated
		if result != nil && result.Generated > 0 {
			log.Error().Err(err).Int32("forecast_id", id).Int("generated", result.Generated).Msg("Period generation partially failed")
			return c.JSON(http.StatusMultiStatus, result)
		}
		return h.handleServiceError(c, err, workspaceID, "generate periods")
	}

	return c.JSON(http.StatusOK, result)
}

// GetPeriods handles GET /api/v1/forecasts/:id/periods
func (h *ForecastHandler) GetPeriods(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid forecast id", nil)
	}

	periods, err := h.orchestrator.GetPeriods(workspaceID, id)
	if err != nil {
		return h.handleServiceError(c, err, workspaceID, "list periods")
	}

	response := make([]PeriodResponse, len(periods))
	for i, p := range periods {
		response[i] = toPeriodResponse(p)
	}

	return c.JSON(http.StatusOK, PeriodListResponse{Data: response})
}

// RunMatching handles POST /api/v1/forecasts/:id/matching/run
func (h *ForecastHandler) RunMatching(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid forecast id", nil)
	}

	newMatches, err := h.orchestrator.RunMatching(workspaceID, id)
	if err != nil {
		if newMatches > 0 {
			log.Error().Err(err).Int32("forecast_id", id).Int("new_matches", newMatches).Msg("Matching pass partially failed")
			return c.JSON(http.StatusMultiStatus, map[string]int{"newMatches": newMatches})
		}
		return h.handleServiceError(c, err, workspaceID, "run matching")
	}

	return c.JSON(http.StatusOK, map[string]int{"newMatches": newMatches})
}

// ArchiveRecord handles POST /api/v1/forecasts/:id/records/:recordId/archive
func (h *ForecastHandler) ArchiveRecord(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid forecast id", nil)
	}

	recordID, err := uuid.Parse(c.Param("recordId"))
	if err != nil {
		return NewValidationError(c, "Invalid record id", nil)
	}

	var req ArchiveRecordRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	period, err := h.orchestrator.ArchiveRecord(workspaceID, id, recordID, req.PeriodID)
	if err != nil {
		return h.handleServiceError(c, err, workspaceID, "archive record")
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("forecast_id", id).Str("record_id", recordID.String()).Msg("Record archived")

	return c.JSON(http.StatusOK, toPeriodResponse(period))
}

// SummaryResponse represents the forecast summary response
type SummaryResponse struct {
	ForecastID      int32   `json:"forecastId"`
	Name            string  `json:"name"`
	Currency        string  `json:"currency"`
	TotalPeriods    int32   `json:"totalPeriods"`
	MatchedPeriods  int32   `json:"matchedPeriods"`
	TotalExpected   string  `json:"totalExpected"`
	TotalReceived   string  `json:"totalReceived"`
	AchievementRate string  `json:"achievementRate"`
	LastMatchedAt   *string `json:"lastMatchedAt,omitempty"`
}

// GetSummary handles GET /api/v1/forecasts/:id/summary
func (h *ForecastHandler) GetSummary(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := parseIDParam(c)
	if err != nil {
		return NewValidationError(c, "Invalid forecast id", nil)
	}

	forecast, err := h.orchestrator.GetSummary(workspaceID, id)
	if err != nil {
		return h.handleServiceError(c, err, workspaceID, "get summary")
	}

	resp := SummaryResponse{
		ForecastID:      forecast.ID,
		Name:            forecast.Name,
		Currency:        forecast.Currency,
		TotalPeriods:    forecast.Stats.TotalPeriods,
		MatchedPeriods:  forecast.Stats.MatchedPeriods,
		TotalExpected:   forecast.Stats.TotalExpected.String(),
		TotalReceived:   forecast.Stats.TotalReceived.String(),
		AchievementRate: forecast.Stats.AchievementRate.String(),
	}
	if forecast.Stats.LastMatchedAt != nil {
		last := forecast.Stats.LastMatchedAt.Format(time.RFC3339)
		resp.LastMatchedAt = &last
	}

	return c.JSON(http.StatusOK, resp)
}

// handleServiceError maps domain errors to problem responses
func (h *ForecastHandler) handleServiceError(c echo.Context, err error, workspaceID int32, operation string) error {
	switch {
	case errors.Is(err, domain.ErrForecastNotFound),
		errors.Is(err, domain.ErrPeriodNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		return NewNotFoundError(c, err.Error())

	case errors.Is(err, domain.ErrRecordAlreadyMatched),
		errors.Is(err, domain.ErrCategoryMismatch),
		errors.Is(err, domain.ErrRecordNotIncome),
		errors.Is(err, domain.ErrForecastInactive),
		errors.Is(err, domain.ErrAutoMatchDisabled):
		return NewConflictError(c, err.Error())

	case errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, domain.ErrNameTooLong),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidFrequency),
		errors.Is(err, domain.ErrInvalidScheduleParam),
		errors.Is(err, domain.ErrInvalidFallbackRule),
		errors.Is(err, domain.ErrInvalidAmountTolerance),
		errors.Is(err, domain.ErrInvalidDateTolerance),
		errors.Is(err, domain.ErrUnsupportedScheduleKind),
		errors.Is(err, domain.ErrScheduleDateOutOfWindow):
		return NewValidationError(c, err.Error(), nil)

	default:
		log.Error().Err(err).Int32("workspace_id", workspaceID).Str("operation", operation).Msg("Service operation failed")
		return NewInternalError(c, "Failed to "+operation)
	}
}

func parseIDParam(c echo.Context) (int32, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return int32(id), nil
}

func toCreateInput(req CreateForecastRequest) (service.CreateForecastInput, error) {
	amount, err := decimal.NewFromString(req.ExpectedAmount)
	if err != nil {
		return service.CreateForecastInput{}, errors.New("expectedAmount must be a valid decimal number")
	}

	amountTolerance := decimal.Zero
	if req.Matching.AmountTolerance != "" {
		amountTolerance, err = decimal.NewFromString(req.Matching.AmountTolerance)
		if err != nil {
			return service.CreateForecastInput{}, errors.New("amountTolerance must be a valid decimal number")
		}
	}

	return service.CreateForecastInput{
		Name:           req.Name,
		Description:    req.Description,
		ExpectedAmount: amount,
		Currency:       req.Currency,
		CategoryID:     req.CategoryID,
		Frequency:      domain.Frequency(req.Frequency),
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Schedule: domain.PaymentSchedule{
			Kind:             domain.ScheduleKind(req.Schedule.Kind),
			DayOfMonth:       req.Schedule.DayOfMonth,
			FixedDate:        req.Schedule.FixedDate,
			WorkingDayOffset: req.Schedule.WorkingDayOffset,
			CustomRule:       req.Schedule.CustomRule,
			Fallback:         domain.FallbackRule(req.Schedule.Fallback),
		},
		Matching: domain.MatchingConfig{
			AmountTolerance:   amountTolerance,
			DateToleranceDays: req.Matching.DateToleranceDays,
			AutoMatch:         req.Matching.AutoMatch,
			Keywords:          req.Matching.Keywords,
		},
	}, nil
}

func toForecastResponse(f *domain.Forecast) ForecastResponse {
	resp := ForecastResponse{
		ID:             f.ID,
		WorkspaceID:    f.WorkspaceID,
		Name:           f.Name,
		Description:    f.Description,
		ExpectedAmount: f.ExpectedAmount.String(),
		Currency:       f.Currency,
		CategoryID:     f.CategoryID,
		Frequency:      string(f.Frequency),
		StartDate:      f.StartDate.Format(time.RFC3339),
		Schedule:       f.Schedule,
		Matching:       f.Matching,
		Stats:          f.Stats,
		IsActive:       f.IsActive,
		CreatedAt:      f.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      f.UpdatedAt.Format(time.RFC3339),
	}
	if f.EndDate != nil {
		endDate := f.EndDate.Format(time.RFC3339)
		resp.EndDate = &endDate
	}
	return resp
}

func toPeriodResponse(p *domain.Period) PeriodResponse {
	return PeriodResponse{
		ID:                  p.ID,
		ForecastID:          p.ForecastID,
		Number:              p.Number,
		StartDate:           p.StartDate.Format(time.RFC3339),
		EndDate:             p.EndDate.Format(time.RFC3339),
		ExpectedAmount:      p.ExpectedAmount.String(),
		ExpectedPaymentDate: p.ExpectedPaymentDate.Format(time.RFC3339),
		WindowStart:         p.WindowStart.Format(time.RFC3339),
		WindowEnd:           p.WindowEnd.Format(time.RFC3339),
		Matches:             p.Matches,
		ActualAmount:        p.ActualAmount.String(),
		Status:              string(p.Status),
		AchievementRate:     p.AchievementRate.String(),
		HealthScore:         p.HealthScore,
	}
}
