package services

import (
	"context"
	"time"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	"github.com/opsledger/backoffice_ledger/internal/dto"
)

// PeriodReaderSvc defines read operations over a fiscal year's period container.
type PeriodReaderSvc interface {
	// GetPeriodSet retrieves the full period container for an organization+year.
	GetPeriodSet(ctx context.Context, organizationID string, fiscalYear int) (*domain.PeriodSet, error)

	// GetPeriod retrieves one period by number.
	GetPeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int) (*domain.Period, error)

	// GetCurrentOpenPeriod returns the lowest-numbered Open period.
	GetCurrentOpenPeriod(ctx context.Context, organizationID string, fiscalYear int) (*domain.Period, error)

	// GetPeriodForDate returns the period covering the given date.
	GetPeriodForDate(ctx context.Context, organizationID string, date time.Time) (*domain.Period, error)

	// CanPostToDate reports whether a posting dated at the given date is
	// currently permitted.
	CanPostToDate(ctx context.Context, organizationID string, date time.Time) (bool, error)

	// EnsurePostable fails with a state error when a posting dated at the
	// given date is not currently permitted. This is the query the journal
	// entry entity performs while posting.
	EnsurePostable(ctx context.Context, organizationID string, date time.Time) (*domain.Period, error)
}

// PeriodWriterSvc defines the period lifecycle commands. Each command runs to
// completion under the container's single-writer lock.
type PeriodWriterSvc interface {
	// InitializePeriods generates the periods of a fiscal year once.
	InitializePeriods(ctx context.Context, organizationID string, req dto.InitializePeriodsRequest, createdBy string) (*domain.PeriodSet, error)

	// OpenPeriod opens a period, enforcing the in-sequence guard.
	OpenPeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int, req dto.OpenPeriodRequest, openedBy string) (*domain.PeriodSet, error)

	// ClosePeriod closes an open period; Force closes a NotStarted one.
	ClosePeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int, req dto.ClosePeriodRequest, closedBy string) (*domain.PeriodSet, error)

	// ReopenPeriod reopens a closed period unless a later period is locked.
	ReopenPeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int, req dto.ReopenPeriodRequest, reopenedBy string) (*domain.PeriodSet, error)

	// LockPeriod locks a closed period once every earlier one is closed or locked.
	LockPeriod(ctx context.Context, organizationID string, fiscalYear, periodNumber int, req dto.LockPeriodRequest, lockedBy string) (*domain.PeriodSet, error)

	// YearEndClose locks every period and marks the container year-closed.
	YearEndClose(ctx context.Context, organizationID string, fiscalYear int, req dto.YearEndCloseRequest, closedBy string) (*domain.PeriodSet, error)
}

// PeriodSvcFacade combines all period service interfaces.
type PeriodSvcFacade interface {
	PeriodReaderSvc
	PeriodWriterSvc
}
