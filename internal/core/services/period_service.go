package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsledger/backoffice_ledger/internal/apperrors"
	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	portsrepo "github.com/opsledger/backoffice_ledger/internal/core/ports/repositories"
	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
	"github.com/opsledger/backoffice_ledger/internal/dto"
	"github.com/opsledger/backoffice_ledger/internal/middleware"
)

var (
	ErrPeriodsNotInitialized = errors.New("accounting periods are not initialized for this fiscal year")
	ErrNoOpenPeriod          = errors.New("no period is currently open")
)

// periodService owns the lifecycle of each organization+fiscal-year period
// container. Every command is serialized per container through the stream
// locker and either appends exactly one event or fails with no mutation.
type periodService struct {
	eventStore portsrepo.EventStore
	locker     *streamLocker
}

// NewPeriodService creates a new PeriodService.
func NewPeriodService(eventStore portsrepo.EventStore) portssvc.PeriodSvcFacade {
	return &periodService{
		eventStore: eventStore,
		locker:     newStreamLocker(),
	}
}

var _ portssvc.PeriodSvcFacade = (*periodService)(nil)

// loadPeriodSet replays a container's stream into its materialized state.
func (s *periodService) loadPeriodSet(ctx context.Context, organizationID string, fiscalYear int) (*domain.PeriodSet, error) {
	streamID := domain.PeriodStreamID(organizationID, fiscalYear)
	events, err := s.eventStore.LoadStream(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load period stream %s: %w", streamID, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: fiscal year %d: %w", ErrPeriodsNotInitialized, fiscalYear, apperrors.ErrNotFound)
	}
	return domain.ReplayPeriodSet(events)
}

// appendAndApply appends one event at the container's current version and
// folds it into the in-memory state.
func (s *periodService) appendAndApply(ctx context.Context, set *domain.PeriodSet, eventType domain.EventType, actor string, payload any) error {
	streamID := domain.PeriodStreamID(set.OrganizationID, set.FiscalYear)
	ev, err := domain.NewEvent(streamID, set.OrganizationID, set.Version+1, eventType, actor, time.Now().UTC(), payload)
	if err != nil {
		return err
	}
	if err := s.eventStore.AppendEvents(ctx, streamID, set.Version, []domain.Event{ev}); err != nil {
		return fmt.Errorf("failed to append %s: %w", eventType, err)
	}
	return set.ApplyPeriodEvent(ev)
}

// InitializePeriods generates all periods for a fiscal year. The container is
// initialized exactly once; a second attempt is a conflict.
func (s *periodService) InitializePeriods(ctx context.Context, organizationID string, req dto.InitializePeriodsRequest, createdBy string) (*domain.PeriodSet, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	frequency := domain.PeriodFrequency(req.Frequency)
	if frequency.PeriodsPerYear() == 0 {
		return nil, fmt.Errorf("%w: unknown frequency %q", apperrors.ErrValidation, req.Frequency)
	}
	periods, err := domain.GeneratePeriods(req.FiscalYear, req.StartMonth, frequency)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
	}

	streamID := domain.PeriodStreamID(organizationID, req.FiscalYear)
	release := s.locker.Acquire(streamID)
	defer release()

	exists, err := s.eventStore.StreamExists(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to check period stream %s: %w", streamID, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: periods for fiscal year %d already initialized", apperrors.ErrConflict, req.FiscalYear)
	}

	payload := domain.PeriodsInitializedPayload{
		FiscalYear: req.FiscalYear,
		StartMonth: req.StartMonth,
		Frequency:  frequency,
		Periods:    periods,
	}
	ev, err := domain.NewEvent(streamID, organizationID, 1, domain.PeriodsInitialized, createdBy, time.Now().UTC(), payload)
	if err != nil {
		return nil, err
	}
	if err := s.eventStore.AppendEvents(ctx, streamID, 0, []domain.Event{ev}); err != nil {
		return nil, fmt.Errorf("failed to append %s: %w", domain.PeriodsInitialized, err)
	}

	set := &domain.PeriodSet{}
	if err := set.ApplyPeriodEvent(ev); err != nil {
		return nil, err
	}

	logger.Info("Accounting periods initialized",
		slog.String("organization_id", organizationID),
		slog.Int("fiscal_year", req.FiscalYear),
		slog.String("frequency", string(frequency)),
		slog.Int("period_count", len(periods)))
	return set, nil
}

// OpenPeriod opens a period. Periods open in sequence: period n requires that
// period n-1 has left NotStarted.
func (s *periodService) OpenPeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int, req dto.OpenPeriodRequest, openedBy string) (*domain.PeriodSet, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	streamID := domain.PeriodStreamID(organizationID, fiscalYear)
	release := s.locker.Acquire(streamID)
	defer release()

	set, err := s.loadPeriodSet(ctx, organizationID, fiscalYear)
	if err != nil {
		return nil, err
	}
	if set.YearClosed {
		return nil, fmt.Errorf("%w: fiscal year %d is closed", apperrors.ErrInvalidState, fiscalYear)
	}
	period := set.GetPeriod(periodNumber)
	if period == nil {
		return nil, fmt.Errorf("%w: period %d", apperrors.ErrNotFound, periodNumber)
	}
	switch period.Status {
	case domain.PeriodStatusLocked:
		return nil, fmt.Errorf("%w: cannot open period %d, period is locked", apperrors.ErrInvalidState, periodNumber)
	case domain.PeriodStatusOpen:
		return nil, fmt.Errorf("%w: period %d is already open", apperrors.ErrInvalidState, periodNumber)
	}
	if periodNumber > 1 {
		if prev := set.GetPeriod(periodNumber - 1); prev != nil && prev.Status == domain.PeriodStatusNotStarted {
			return nil, fmt.Errorf("%w: cannot open period %d before period %d", apperrors.ErrInvalidState, periodNumber, periodNumber-1)
		}
	}

	payload := domain.PeriodOpenedPayload{PeriodNumber: periodNumber, Notes: req.Notes}
	if err := s.appendAndApply(ctx, set, domain.PeriodOpened, openedBy, payload); err != nil {
		return nil, err
	}

	logger.Info("Period opened", slog.Int("fiscal_year", fiscalYear), slog.Int("period", periodNumber))
	return set, nil
}

// ClosePeriod closes an open period. A NotStarted period may only be closed
// with the explicit force flag.
func (s *periodService) ClosePeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int, req dto.ClosePeriodRequest, closedBy string) (*domain.PeriodSet, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	streamID := domain.PeriodStreamID(organizationID, fiscalYear)
	release := s.locker.Acquire(streamID)
	defer release()

	set, err := s.loadPeriodSet(ctx, organizationID, fiscalYear)
	if err != nil {
		return nil, err
	}
	if set.YearClosed {
		return nil, fmt.Errorf("%w: fiscal year %d is closed", apperrors.ErrInvalidState, fiscalYear)
	}
	period := set.GetPeriod(periodNumber)
	if period == nil {
		return nil, fmt.Errorf("%w: period %d", apperrors.ErrNotFound, periodNumber)
	}
	forced := false
	switch period.Status {
	case domain.PeriodStatusLocked:
		return nil, fmt.Errorf("%w: cannot close period %d, period is locked", apperrors.ErrInvalidState, periodNumber)
	case domain.PeriodStatusClosed:
		return nil, fmt.Errorf("%w: period %d is already closed", apperrors.ErrInvalidState, periodNumber)
	case domain.PeriodStatusNotStarted:
		if !req.Force {
			return nil, fmt.Errorf("%w: period %d was never opened, set force to close it", apperrors.ErrInvalidState, periodNumber)
		}
		forced = true
	}

	payload := domain.PeriodClosedPayload{PeriodNumber: periodNumber, Forced: forced, Notes: req.Notes}
	if err := s.appendAndApply(ctx, set, domain.PeriodClosed, closedBy, payload); err != nil {
		return nil, err
	}

	logger.Info("Period closed", slog.Int("fiscal_year", fiscalYear), slog.Int("period", periodNumber), slog.Bool("forced", forced))
	return set, nil
}

// ReopenPeriod reopens a closed period unless any later period is locked.
func (s *periodService) ReopenPeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int, req dto.ReopenPeriodRequest, reopenedBy string) (*domain.PeriodSet, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	streamID := domain.PeriodStreamID(organizationID, fiscalYear)
	release := s.locker.Acquire(streamID)
	defer release()

	set, err := s.loadPeriodSet(ctx, organizationID, fiscalYear)
	if err != nil {
		return nil, err
	}
	if set.YearClosed {
		return nil, fmt.Errorf("%w: fiscal year %d is closed", apperrors.ErrInvalidState, fiscalYear)
	}
	period := set.GetPeriod(periodNumber)
	if period == nil {
		return nil, fmt.Errorf("%w: period %d", apperrors.ErrNotFound, periodNumber)
	}
	if period.Status != domain.PeriodStatusClosed {
		return nil, fmt.Errorf("%w: cannot reopen period %d, status is %s", apperrors.ErrInvalidState, periodNumber, period.Status)
	}
	for n := periodNumber + 1; n <= len(set.Periods); n++ {
		if later := set.GetPeriod(n); later != nil && later.Status == domain.PeriodStatusLocked {
			return nil, fmt.Errorf("%w: cannot reopen period %d, period %d is locked", apperrors.ErrInvalidState, periodNumber, n)
		}
	}

	payload := domain.PeriodReopenedPayload{PeriodNumber: periodNumber, Notes: req.Notes}
	if err := s.appendAndApply(ctx, set, domain.PeriodReopened, reopenedBy, payload); err != nil {
		return nil, err
	}

	logger.Info("Period reopened", slog.Int("fiscal_year", fiscalYear), slog.Int("period", periodNumber))
	return set, nil
}

// LockPeriod locks a closed period once every earlier period is closed or locked.
func (s *periodService) LockPeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int, req dto.LockPeriodRequest, lockedBy string) (*domain.PeriodSet, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	streamID := domain.PeriodStreamID(organizationID, fiscalYear)
	release := s.locker.Acquire(streamID)
	defer release()

	set, err := s.loadPeriodSet(ctx, organizationID, fiscalYear)
	if err != nil {
		return nil, err
	}
	period := set.GetPeriod(periodNumber)
	if period == nil {
		return nil, fmt.Errorf("%w: period %d", apperrors.ErrNotFound, periodNumber)
	}
	if period.Status == domain.PeriodStatusLocked {
		return nil, fmt.Errorf("%w: period %d is already locked", apperrors.ErrInvalidState, periodNumber)
	}
	if period.Status != domain.PeriodStatusClosed {
		return nil, fmt.Errorf("%w: cannot lock period %d, status is %s", apperrors.ErrInvalidState, periodNumber, period.Status)
	}
	for n := 1; n < periodNumber; n++ {
		if earlier := set.GetPeriod(n); earlier != nil && earlier.Status != domain.PeriodStatusClosed && earlier.Status != domain.PeriodStatusLocked {
			return nil, fmt.Errorf("%w: cannot lock period %d, period %d is not closed", apperrors.ErrInvalidState, periodNumber, n)
		}
	}

	payload := domain.PeriodLockedPayload{PeriodNumber: periodNumber, Notes: req.Notes}
	if err := s.appendAndApply(ctx, set, domain.PeriodLocked, lockedBy, payload); err != nil {
		return nil, err
	}

	logger.Info("Period locked", slog.Int("fiscal_year", fiscalYear), slog.Int("period", periodNumber))
	return set, nil
}

// YearEndClose locks every remaining period and marks the container
// year-closed. Generation of the closing entries into retained earnings is a
// downstream accounting operation; the container only enforces the locking.
func (s *periodService) YearEndClose(ctx context.Context, organizationID string, fiscalYear int, req dto.YearEndCloseRequest, closedBy string) (*domain.PeriodSet, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.RetainedEarningsAccount == "" {
		return nil, fmt.Errorf("%w: retained earnings account is required", apperrors.ErrValidation)
	}

	streamID := domain.PeriodStreamID(organizationID, fiscalYear)
	release := s.locker.Acquire(streamID)
	defer release()

	set, err := s.loadPeriodSet(ctx, organizationID, fiscalYear)
	if err != nil {
		return nil, err
	}
	if set.YearClosed {
		return nil, fmt.Errorf("%w: fiscal year %d is already closed", apperrors.ErrConflict, fiscalYear)
	}
	for n := 1; n <= len(set.Periods); n++ {
		period := set.GetPeriod(n)
		if period != nil && period.Status != domain.PeriodStatusClosed && period.Status != domain.PeriodStatusLocked {
			return nil, fmt.Errorf("%w: cannot close fiscal year %d, period %d is %s", apperrors.ErrInvalidState, fiscalYear, n, period.Status)
		}
	}

	payload := domain.FiscalYearClosedPayload{
		RetainedEarningsAccount: req.RetainedEarningsAccount,
		Notes:                   req.Notes,
	}
	if err := s.appendAndApply(ctx, set, domain.FiscalYearClosed, closedBy, payload); err != nil {
		return nil, err
	}

	logger.Info("Fiscal year closed",
		slog.String("organization_id", organizationID),
		slog.Int("fiscal_year", fiscalYear),
		slog.String("retained_earnings_account", req.RetainedEarningsAccount))
	return set, nil
}

// GetPeriodSet retrieves the full period container for an organization+year.
func (s *periodService) GetPeriodSet(ctx context.Context, organizationID string, fiscalYear int) (*domain.PeriodSet, error) {
	return s.loadPeriodSet(ctx, organizationID, fiscalYear)
}

// GetPeriod retrieves one period by number.
func (s *periodService) GetPeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int) (*domain.Period, error) {
	set, err := s.loadPeriodSet(ctx, organizationID, fiscalYear)
	if err != nil {
		return nil, err
	}
	period := set.GetPeriod(periodNumber)
	if period == nil {
		return nil, fmt.Errorf("%w: period %d", apperrors.ErrNotFound, periodNumber)
	}
	return period, nil
}

// GetCurrentOpenPeriod returns the lowest-numbered Open period.
func (s *periodService) GetCurrentOpenPeriod(ctx context.Context, organizationID string, fiscalYear int) (*domain.Period, error) {
	set, err := s.loadPeriodSet(ctx, organizationID, fiscalYear)
	if err != nil {
		return nil, err
	}
	period := set.CurrentOpenPeriod()
	if period == nil {
		return nil, fmt.Errorf("%w: fiscal year %d: %w", ErrNoOpenPeriod, fiscalYear, apperrors.ErrNotFound)
	}
	return period, nil
}

// resolveSetForDate finds the period container whose fiscal year covers the
// given date. Fiscal years may start mid-calendar-year, so a date can belong
// to the container labelled with the previous calendar year.
func (s *periodService) resolveSetForDate(ctx context.Context, organizationID string, date time.Time) (*domain.PeriodSet, error) {
	d := domain.DateOnly(date)
	for _, year := range []int{d.Year(), d.Year() - 1} {
		events, err := s.eventStore.LoadStream(ctx, domain.PeriodStreamID(organizationID, year))
		if err != nil {
			return nil, fmt.Errorf("failed to load period stream for fiscal year %d: %w", year, err)
		}
		if len(events) == 0 {
			continue
		}
		set, err := domain.ReplayPeriodSet(events)
		if err != nil {
			return nil, err
		}
		if set.PeriodForDate(d) != nil {
			return set, nil
		}
	}
	return nil, nil
}

// GetPeriodForDate returns the period covering the given date.
func (s *periodService) GetPeriodForDate(ctx context.Context, organizationID string, date time.Time) (*domain.Period, error) {
	set, err := s.resolveSetForDate(ctx, organizationID, date)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, fmt.Errorf("%w: no period covers date %s", apperrors.ErrNotFound, domain.DateOnly(date).Format("2006-01-02"))
	}
	return set.PeriodForDate(date), nil
}

// CanPostToDate reports whether a posting dated at the given date is permitted.
func (s *periodService) CanPostToDate(ctx context.Context, organizationID string, date time.Time) (bool, error) {
	set, err := s.resolveSetForDate(ctx, organizationID, date)
	if err != nil {
		return false, err
	}
	if set == nil {
		return false, nil
	}
	return set.CanPostToDate(date), nil
}

// EnsurePostable is the posting-protocol query: it returns the covering Open
// period or a state error naming why posting is not permitted.
func (s *periodService) EnsurePostable(ctx context.Context, organizationID string, date time.Time) (*domain.Period, error) {
	set, err := s.resolveSetForDate(ctx, organizationID, date)
	if err != nil {
		return nil, err
	}
	dateStr := domain.DateOnly(date).Format("2006-01-02")
	if set == nil {
		return nil, fmt.Errorf("%w: cannot post, no accounting period covers date %s", apperrors.ErrInvalidState, dateStr)
	}
	if set.YearClosed {
		return nil, fmt.Errorf("%w: cannot post, fiscal year %d is closed", apperrors.ErrInvalidState, set.FiscalYear)
	}
	period := set.PeriodForDate(date)
	switch period.Status {
	case domain.PeriodStatusOpen:
		return period, nil
	case domain.PeriodStatusClosed:
		return nil, fmt.Errorf("%w: cannot post, period %d (%s) is closed", apperrors.ErrInvalidState, period.PeriodNumber, period.Name)
	case domain.PeriodStatusLocked:
		return nil, fmt.Errorf("%w: cannot post, period %d (%s) is locked", apperrors.ErrInvalidState, period.PeriodNumber, period.Name)
	default:
		return nil, fmt.Errorf("%w: cannot post, period %d (%s) is not open", apperrors.ErrInvalidState, period.PeriodNumber, period.Name)
	}
}
