package service

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerline/forecast-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// ForecastOrchestrator is the façade the rest of the application calls. It
// composes the factory, matching engine, status machine and aggregator, and
// owns persistence of their results.
//
// Operations against the same forecast are serialized with a per-forecast
// lock so two concurrent matching passes can never claim the same record.
// Operations against different forecasts run fully in parallel.
type ForecastOrchestrator struct {
	forecastRepo domain.ForecastRepository
	periodRepo   domain.PeriodRepository
	recordRepo   domain.RecordRepository

	factory    *PeriodFactory
	engine     *MatchingEngine
	status     *PeriodStatusMachine
	aggregator *StatisticsAggregator

	mu    sync.Mutex
	locks map[int32]*sync.Mutex
}

// NewForecastOrchestrator creates a ForecastOrchestrator
func NewForecastOrchestrator(
	forecastRepo domain.ForecastRepository,
	periodRepo domain.PeriodRepository,
	recordRepo domain.RecordRepository,
	factory *PeriodFactory,
	engine *MatchingEngine,
) *ForecastOrchestrator {
	return &ForecastOrchestrator{
		forecastRepo: forecastRepo,
		periodRepo:   periodRepo,
		recordRepo:   recordRepo,
		factory:      factory,
		engine:       engine,
		status:       NewPeriodStatusMachine(),
		aggregator:   NewStatisticsAggregator(),
		locks:        make(map[int32]*sync.Mutex),
	}
}

// lockForecast returns the mutex serializing writes for one forecast
func (o *ForecastOrchestrator) lockForecast(forecastID int32) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[forecastID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[forecastID] = l
	}
	return l
}

// GenerateResult reports the outcome of a generation pass. On a store
// failure mid-batch, Generated counts what was persisted before the failure.
type GenerateResult struct {
	Generated int `json:"generated"`
	Reused    int `json:"reused"`
}

// GeneratePeriods extends the forecast's period sequence by up to count
// periods, stopping early when the forecast's end date is reached. Windows
// that already have a period are reused, not duplicated, so repeated calls
// are idempotent. Statistics are recomputed from whatever was actually
// persisted, even on partial failure.
func (o *ForecastOrchestrator) GeneratePeriods(workspaceID, forecastID int32, count int) (*GenerateResult, error) {
	lock := o.lockForecast(forecastID)
	lock.Lock()
	defer lock.Unlock()

	forecast, err := o.loadActiveForecast(workspaceID, forecastID)
	if err != nil {
		return nil, err
	}

	periods, err := o.loadPeriods(workspaceID, forecastID)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{}
	var last *domain.Period
	if len(periods) > 0 {
		last = periods[len(periods)-1]
	}

	var genErr error
	for i := 0; i < count; i++ {
		candidate, err := o.factory.NextPeriod(forecast, last)
		if err != nil {
			genErr = err
			break
		}
		if candidate == nil {
			// End date reached
			break
		}

		// Idempotency: a period already covering this window is reused and
		// the generation counter still advances
		if existing := findOverlapping(periods, candidate); existing != nil {
			result.Reused++
			last = existing
			continue
		}

		o.status.Recalculate(candidate, time.Now())
		created, err := o.periodRepo.Create(candidate)
		if err != nil {
			// Truncate the batch to what succeeded; stats below reflect only
			// persisted periods
			genErr = fmt.Errorf("persist period %d: %w", candidate.Number, err)
			break
		}

		periods = append(periods, created)
		result.Generated++
		last = created
	}

	if err := o.refreshStats(forecast, periods); err != nil && genErr == nil {
		genErr = err
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("forecast_id", forecastID).
		Int("generated", result.Generated).
		Int("reused", result.Reused).
		Msg("Period generation completed")

	return result, genErr
}

// RunMatching runs the automatic matching pass over every non-completed
// period of the forecast. Returns the number of newly matched records; on a
// store failure mid-pass the count covers what was persisted before it.
func (o *ForecastOrchestrator) RunMatching(workspaceID, forecastID int32) (int, error) {
	lock := o.lockForecast(forecastID)
	lock.Lock()
	defer lock.Unlock()

	forecast, err := o.loadActiveForecast(workspaceID, forecastID)
	if err != nil {
		return 0, err
	}
	if !forecast.Matching.AutoMatch {
		return 0, domain.ErrAutoMatchDisabled
	}

	periods, err := o.loadPeriods(workspaceID, forecastID)
	if err != nil {
		return 0, err
	}

	// Cross-period exclusivity: every record already attached anywhere in
	// this forecast is excluded from every candidate pool
	claimed := claimedRecordIDs(periods)

	now := time.Now()
	newMatches := 0
	var matchErr error

	for _, period := range periods {
		if period.DeletedAt != nil || period.Status == domain.PeriodStatusCompleted {
			continue
		}

		candidates, err := o.recordRepo.FindCandidates(domain.CandidateFilter{
			WorkspaceID: workspaceID,
			CategoryID:  forecast.CategoryID,
			From:        period.WindowStart,
			To:          period.WindowEnd,
			ExcludeIDs:  claimed,
		})
		if err != nil {
			matchErr = fmt.Errorf("find candidates for period %d: %w", period.Number, err)
			break
		}

		attached := o.engine.Match(period, candidates, forecast.Matching, now)
		if len(attached) == 0 {
			// No new matches, but time may still have moved the status
			// (pending periods past their window become missed)
			before := period.Status
			o.status.Recalculate(period, now)
			if period.Status != before {
				if _, err := o.periodRepo.Update(period); err != nil {
					matchErr = fmt.Errorf("persist period %d: %w", period.Number, err)
					break
				}
			}
			continue
		}

		if err := o.persistMatches(period, attached, now); err != nil {
			matchErr = err
			break
		}

		for _, m := range attached {
			claimed = append(claimed, m.RecordID)
		}
		newMatches += len(attached)
	}

	if err := o.refreshStats(forecast, periods); err != nil && matchErr == nil {
		matchErr = err
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("forecast_id", forecastID).
		Int("new_matches", newMatches).
		Msg("Matching pass completed")

	return newMatches, matchErr
}

// ArchiveRecord manually attaches a record to a period. When periodID is nil
// the period whose window contains the record's date is chosen, falling back
// to the chronologically nearest period.
func (o *ForecastOrchestrator) ArchiveRecord(workspaceID, forecastID int32, recordID uuid.UUID, periodID *int32) (*domain.Period, error) {
	lock := o.lockForecast(forecastID)
	lock.Lock()
	defer lock.Unlock()

	forecast, err := o.loadActiveForecast(workspaceID, forecastID)
	if err != nil {
		return nil, err
	}

	record, err := o.recordRepo.GetByID(workspaceID, recordID)
	if err != nil {
		return nil, err
	}
	if record.ClaimedByPeriodID != nil {
		return nil, domain.ErrRecordAlreadyMatched
	}
	if record.Type != domain.RecordTypeIncome {
		return nil, domain.ErrRecordNotIncome
	}
	if record.CategoryID != forecast.CategoryID {
		return nil, domain.ErrCategoryMismatch
	}

	periods, err := o.loadPeriods(workspaceID, forecastID)
	if err != nil {
		return nil, err
	}
	for _, p := range periods {
		if p.HasRecord(recordID) {
			return nil, domain.ErrRecordAlreadyMatched
		}
	}

	var target *domain.Period
	if periodID != nil {
		target = findPeriodByID(periods, *periodID)
		if target == nil {
			return nil, domain.ErrPeriodNotFound
		}
	} else {
		target = selectPeriodForDate(periods, record.Date)
		if target == nil {
			return nil, domain.ErrPeriodNotFound
		}
	}

	now := time.Now()
	match := o.engine.MatchOne(target, record, forecast.Matching, now)

	if err := o.persistMatches(target, []domain.MatchedRecord{match}, now); err != nil {
		return nil, err
	}

	if err := o.refreshStats(forecast, periods); err != nil {
		return nil, err
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("forecast_id", forecastID).
		Int32("period_id", target.ID).
		Str("record_id", recordID.String()).
		Float64("confidence", match.Confidence).
		Msg("Record archived into period")

	return target, nil
}

// GetPeriods returns the forecast's periods in sequence order
func (o *ForecastOrchestrator) GetPeriods(workspaceID, forecastID int32) ([]*domain.Period, error) {
	if _, err := o.forecastRepo.GetByID(workspaceID, forecastID); err != nil {
		return nil, err
	}
	return o.loadPeriods(workspaceID, forecastID)
}

// GetSummary returns the forecast with its current statistics block
func (o *ForecastOrchestrator) GetSummary(workspaceID, forecastID int32) (*domain.Forecast, error) {
	return o.forecastRepo.GetByID(workspaceID, forecastID)
}

// loadActiveForecast fetches the forecast and enforces the active state
func (o *ForecastOrchestrator) loadActiveForecast(workspaceID, forecastID int32) (*domain.Forecast, error) {
	forecast, err := o.forecastRepo.GetByID(workspaceID, forecastID)
	if err != nil {
		return nil, err
	}
	if forecast.DeletedAt != nil {
		return nil, domain.ErrForecastNotFound
	}
	if !forecast.IsActive {
		return nil, domain.ErrForecastInactive
	}
	return forecast, nil
}

// loadPeriods returns the forecast's periods sorted by sequence number
func (o *ForecastOrchestrator) loadPeriods(workspaceID, forecastID int32) ([]*domain.Period, error) {
	periods, err := o.periodRepo.ListByForecast(workspaceID, forecastID)
	if err != nil {
		return nil, err
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Number < periods[j].Number })
	return periods, nil
}

// persistMatches recomputes the period's derived fields, persists it, and
// claims the attached records. The claim is written after the period update
// so a failed update never strands a claimed record.
func (o *ForecastOrchestrator) persistMatches(period *domain.Period, attached []domain.MatchedRecord, now time.Time) error {
	o.status.Recalculate(period, now)

	updated, err := o.periodRepo.Update(period)
	if err != nil {
		return fmt.Errorf("persist period %d: %w", period.Number, err)
	}
	period.ID = updated.ID
	period.UpdatedAt = updated.UpdatedAt

	for _, m := range attached {
		if err := o.recordRepo.Claim(period.WorkspaceID, m.RecordID, period.ID); err != nil {
			return fmt.Errorf("claim record %s: %w", m.RecordID, err)
		}
	}
	return nil
}

// refreshStats recomputes forecast statistics from the given periods and
// persists the forecast
func (o *ForecastOrchestrator) refreshStats(forecast *domain.Forecast, periods []*domain.Period) error {
	o.aggregator.Recompute(forecast, periods)
	if _, err := o.forecastRepo.Update(forecast); err != nil {
		return fmt.Errorf("persist forecast stats: %w", err)
	}
	return nil
}

// findOverlapping returns the existing period whose window intersects the
// candidate's, if any
func findOverlapping(periods []*domain.Period, candidate *domain.Period) *domain.Period {
	for _, p := range periods {
		if p.DeletedAt != nil {
			continue
		}
		if p.Overlaps(candidate.StartDate, candidate.EndDate) {
			return p
		}
	}
	return nil
}

// findPeriodByID returns the period with the given id, if any
func findPeriodByID(periods []*domain.Period, id int32) *domain.Period {
	for _, p := range periods {
		if p.ID == id && p.DeletedAt == nil {
			return p
		}
	}
	return nil
}

// selectPeriodForDate picks the period containing the date, or the
// chronologically nearest one
func selectPeriodForDate(periods []*domain.Period, date time.Time) *domain.Period {
	var nearest *domain.Period
	nearestDistance := -1

	for _, p := range periods {
		if p.DeletedAt != nil {
			continue
		}
		if p.ContainsDate(date) {
			return p
		}

		distance := daysBetween(date, p.StartDate)
		if d := daysBetween(date, p.EndDate); d < distance {
			distance = d
		}
		if nearest == nil || distance < nearestDistance {
			nearest = p
			nearestDistance = distance
		}
	}
	return nearest
}

// claimedRecordIDs collects every record id attached to any of the periods
func claimedRecordIDs(periods []*domain.Period) []uuid.UUID {
	var ids []uuid.UUID
	for _, p := range periods {
		for _, m := range p.Matches {
			ids = append(ids, m.RecordID)
		}
	}
	return ids
}
