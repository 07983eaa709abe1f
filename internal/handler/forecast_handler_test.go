package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/ledgerline/forecast-backend/internal/middleware"
	"github.com/ledgerline/forecast-backend/internal/service"
	"github.com/ledgerline/forecast-backend/internal/testutil"
	"github.com/ledgerline/forecast-backend/internal/util"
	"github.com/shopspring/decimal"
)

func setupForecastHandler() (*ForecastHandler, *testutil.MockForecastRepository, *testutil.MockPeriodRepository, *testutil.MockRecordRepository) {
	forecastRepo := testutil.NewMockForecastRepository()
	periodRepo := testutil.NewMockPeriodRepository()
	recordRepo := testutil.NewMockRecordRepository()

	resolver := service.NewScheduleResolver(util.NewWeekendCalendar())
	factory := service.NewPeriodFactory(resolver)
	engine := service.NewMatchingEngine(service.DefaultScoringConfig())
	orchestrator := service.NewForecastOrchestrator(forecastRepo, periodRepo, recordRepo, factory, engine)
	forecastService := service.NewForecastService(forecastRepo, periodRepo)

	handler := NewForecastHandler(forecastService, orchestrator)
	return handler, forecastRepo, periodRepo, recordRepo
}

func setWorkspaceContext(c echo.Context, workspaceID int32) {
	ctx := context.WithValue(c.Request().Context(), middleware.WorkspaceIDKey, workspaceID)
	c.SetRequest(c.Request().WithContext(ctx))
}

func newJSONContext(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func seedHandlerForecast(forecastRepo *testutil.MockForecastRepository) *domain.Forecast {
	forecast := &domain.Forecast{
		ID:             1,
		WorkspaceID:    1,
		Name:           "Salary",
		ExpectedAmount: decimal.NewFromInt(50000),
		Currency:       "USD",
		CategoryID:     10,
		Frequency:      domain.FrequencyMonthly,
		StartDate:      time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC),
		Schedule: domain.PaymentSchedule{
			Kind:       domain.ScheduleDayOfMonth,
			DayOfMonth: 25,
			Fallback:   domain.FallbackNextBusinessDay,
		},
		Matching: domain.MatchingConfig{
			AmountTolerance:   decimal.NewFromInt(5),
			DateToleranceDays: 3,
			AutoMatch:         true,
		},
		IsActive: true,
	}
	forecastRepo.AddForecast(forecast)
	return forecast
}

const createForecastBody = `{
	"name": "Salary",
	"expectedAmount": "50000",
	"categoryId": 10,
	"frequency": "monthly",
	"startDate": "2024-01-01T00:00:00Z",
	"schedule": {"kind": "day_of_month", "dayOfMonth": 25, "fallback": "next_business_day"},
	"matching": {"amountTolerance": "5", "dateToleranceDays": 3, "autoMatch": true}
}`

func TestCreateForecastHandler_Success(t *testing.T) {
	e := echo.New()
	handler, _, _, _ := setupForecastHandler()

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/forecasts", createForecastBody)
	setWorkspaceContext(c, 1)

	if err := handler.CreateForecast(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}

	var response ForecastResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Name != "Salary" {
		t.Errorf("Expected name 'Salary', got %s", response.Name)
	}
	if response.ExpectedAmount != "50000" {
		t.Errorf("Expected amount '50000', got %s", response.ExpectedAmount)
	}
	if response.Currency != "USD" {
		t.Errorf("Expected default currency USD, got %s", response.Currency)
	}
	if !response.IsActive {
		t.Error("Expected IsActive to be true")
	}
}

func TestCreateForecastHandler_MissingWorkspace(t *testing.T) {
	e := echo.New()
	handler, _, _, _ := setupForecastHandler()

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/forecasts", createForecastBody)

	_ = handler.CreateForecast(c)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestCreateForecastHandler_InvalidAmount(t *testing.T) {
	e := echo.New()
	handler, _, _, _ := setupForecastHandler()

	body := strings.Replace(createForecastBody, `"50000"`, `"not-a-number"`, 1)
	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/forecasts", body)
	setWorkspaceContext(c, 1)

	_ = handler.CreateForecast(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateForecastHandler_ValidationError(t *testing.T) {
	e := echo.New()
	handler, _, _, _ := setupForecastHandler()

	body := strings.Replace(createForecastBody, `"Salary"`, `""`, 1)
	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/forecasts", body)
	setWorkspaceContext(c, 1)

	_ = handler.CreateForecast(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal problem details: %v", err)
	}
	if problem.Type != ErrorTypeValidation {
		t.Errorf("Expected validation problem type, got %s", problem.Type)
	}
}

func TestGetForecastsHandler_Success(t *testing.T) {
	e := echo.New()
	handler, forecastRepo, _, _ := setupForecastHandler()
	seedHandlerForecast(forecastRepo)

	c, rec := newJSONContext(e, http.MethodGet, "/api/v1/forecasts", "")
	setWorkspaceContext(c, 1)

	if err := handler.GetForecasts(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response ForecastListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Data) != 1 {
		t.Errorf("Expected 1 forecast, got %d", len(response.Data))
	}
}

func TestGetForecastHandler_NotFound(t *testing.T) {
	e := echo.New()
	handler, _, _, _ := setupForecastHandler()

	c, rec := newJSONContext(e, http.MethodGet, "/api/v1/forecasts/99", "")
	c.SetParamNames("id")
	c.SetParamValues("99")
	setWorkspaceContext(c, 1)

	_ = handler.GetForecast(c)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetForecastHandler_InvalidID(t *testing.T) {
	e := echo.New()
	handler, _, _, _ := setupForecastHandler()

	c, rec := newJSONContext(e, http.MethodGet, "/api/v1/forecasts/abc", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")
	setWorkspaceContext(c, 1)

	_ = handler.GetForecast(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestDeleteForecastHandler_Success(t *testing.T) {
	e := echo.New()
	handler, forecastRepo, _, _ := setupForecastHandler()
	seedHandlerForecast(forecastRepo)

	c, rec := newJSONContext(e, http.MethodDelete, "/api/v1/forecasts/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	setWorkspaceContext(c, 1)

	if err := handler.DeleteForecast(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}
}

func TestGeneratePeriodsHandler_Success(t *testing.T) {
	e := echo.New()
	handler, forecastRepo, _, _ := setupForecastHandler()
	seedHandlerForecast(forecastRepo)

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/forecasts/1/periods/generate", `{"count": 3}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setWorkspaceContext(c, 1)

	if err := handler.GeneratePeriods(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var result service.GenerateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if result.Generated != 3 {
		t.Errorf("Expected 3 generated, got %d", result.Generated)
	}
}

func TestGeneratePeriodsHandler_InvalidCount(t *testing.T) {
	e := echo.New()
	handler, forecastRepo, _, _ := setupForecastHandler()
	seedHandlerForecast(forecastRepo)

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/forecasts/1/periods/generate", `{"count": 0}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	setWorkspaceContext(c, 1)

	_ = handler.GeneratePeriods(c)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestRunMatchingHandler_AutoMatchDisabled(t *testing.T) {
	e := echo.New()
	handler, forecastRepo, _, _ := setupForecastHandler()
	forecast := seedHandlerForecast(forecastRepo)
	forecast.Matching.AutoMatch = false

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/forecasts/1/matching/run", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	setWorkspaceContext(c, 1)

	_ = handler.RunMatching(c)

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestArchiveRecordHandler_Success(t *testing.T) {
	e := echo.New()
	handler, forecastRepo, periodRepo, recordRepo := setupForecastHandler()
	forecast := seedHandlerForecast(forecastRepo)

	periodRepo.AddPeriod(&domain.Period{
		ID: 1, ForecastID: forecast.ID, WorkspaceID: forecast.WorkspaceID,
		Number:    1,
		StartDate: time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC),
		ExpectedAmount:      forecast.ExpectedAmount,
		ExpectedPaymentDate: time.Date(2023, time.March, 27, 0, 0, 0, 0, time.UTC),
		WindowStart:         time.Date(2023, time.March, 24, 0, 0, 0, 0, time.UTC),
		WindowEnd:           time.Date(2023, time.March, 30, 0, 0, 0, 0, time.UTC),
		Matches:             []domain.MatchedRecord{},
		ActualAmount:        decimal.Zero,
		Status:              domain.PeriodStatusPending,
	})

	record := &domain.IncomeRecord{
		ID:          uuid.New(),
		WorkspaceID: 1,
		CategoryID:  10,
		Type:        domain.RecordTypeIncome,
		Amount:      decimal.NewFromInt(49500),
		Date:        time.Date(2023, time.March, 28, 0, 0, 0, 0, time.UTC),
	}
	recordRepo.AddRecord(record)

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/forecasts/1/records/"+record.ID.String()+"/archive", "{}")
	c.SetParamNames("id", "recordId")
	c.SetParamValues("1", record.ID.String())
	setWorkspaceContext(c, 1)

	if err := handler.ArchiveRecord(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response PeriodResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(response.Matches))
	}
	if !response.Matches[0].Manual {
		t.Error("Expected a manual match")
	}
}

func TestArchiveRecordHandler_Conflict(t *testing.T) {
	e := echo.New()
	handler, forecastRepo, _, recordRepo := setupForecastHandler()
	seedHandlerForecast(forecastRepo)

	claimedBy := int32(7)
	record := &domain.IncomeRecord{
		ID:                uuid.New(),
		WorkspaceID:       1,
		CategoryID:        10,
		Type:              domain.RecordTypeIncome,
		Amount:            decimal.NewFromInt(49500),
		Date:              time.Date(2023, time.March, 28, 0, 0, 0, 0, time.UTC),
		ClaimedByPeriodID: &claimedBy,
	}
	recordRepo.AddRecord(record)

	c, rec := newJSONContext(e, http.MethodPost, "/api/v1/forecasts/1/records/"+record.ID.String()+"/archive", "{}")
	c.SetParamNames("id", "recordId")
	c.SetParamValues("1", record.ID.String())
	setWorkspaceContext(c, 1)

	_ = handler.ArchiveRecord(c)

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestGetSummaryHandler_Success(t *testing.T) {
	e := echo.New()
	handler, forecastRepo, _, _ := setupForecastHandler()
	forecast := seedHandlerForecast(forecastRepo)
	forecast.Stats = domain.ForecastStats{
		TotalPeriods:    2,
		MatchedPeriods:  1,
		TotalExpected:   decimal.NewFromInt(100000),
		TotalReceived:   decimal.NewFromInt(49500),
		AchievementRate: decimal.NewFromFloat(0.495),
	}

	c, rec := newJSONContext(e, http.MethodGet, "/api/v1/forecasts/1/summary", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	setWorkspaceContext(c, 1)

	if err := handler.GetSummary(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response SummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.TotalPeriods != 2 {
		t.Errorf("Expected 2 periods, got %d", response.TotalPeriods)
	}
	if response.TotalReceived != "49500" {
		t.Errorf("Expected total received '49500', got %s", response.TotalReceived)
	}
}
