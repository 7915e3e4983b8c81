package dto

import (
	"time"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
)

// InitializePeriodsRequest defines the payload for generating a fiscal year's
// periods. Initialization happens once per organization+year.
type InitializePeriodsRequest struct {
	FiscalYear int    `json:"fiscalYear" binding:"required"`
	StartMonth int    `json:"startMonth" binding:"required,min=1,max=12"`
	Frequency  string `json:"frequency" binding:"required,oneof=MONTHLY QUARTERLY YEARLY"`
}

// OpenPeriodRequest defines the payload for opening a period.
type OpenPeriodRequest struct {
	Notes string `json:"notes"`
}

// ClosePeriodRequest defines the payload for closing a period. Force must be
// set to close a period that was never opened.
type ClosePeriodRequest struct {
	Notes string `json:"notes"`
	Force bool   `json:"force"`
}

// ReopenPeriodRequest defines the payload for reopening a closed period.
type ReopenPeriodRequest struct {
	Notes string `json:"notes"`
}

// LockPeriodRequest defines the payload for locking a closed period.
type LockPeriodRequest struct {
	Notes string `json:"notes"`
}

// YearEndCloseRequest defines the payload for closing the fiscal year.
type YearEndCloseRequest struct {
	RetainedEarningsAccount string `json:"retainedEarningsAccount" binding:"required"`
	Notes                   string `json:"notes"`
}

// PeriodResponse is the API representation of one accounting period.
type PeriodResponse struct {
	PeriodNumber int        `json:"periodNumber"`
	Name         string     `json:"name"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      time.Time  `json:"endDate"`
	Status       string     `json:"status"`
	IsYearEnd    bool       `json:"isYearEnd"`
	OpenedAt     *time.Time `json:"openedAt,omitempty"`
	OpenedBy     string     `json:"openedBy,omitempty"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	ClosedBy     string     `json:"closedBy,omitempty"`
	LockedAt     *time.Time `json:"lockedAt,omitempty"`
	LockedBy     string     `json:"lockedBy,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// PeriodSetResponse is the API representation of a fiscal year's period container.
type PeriodSetResponse struct {
	OrganizationID string           `json:"organizationID"`
	FiscalYear     int              `json:"fiscalYear"`
	StartMonth     int              `json:"startMonth"`
	Frequency      string           `json:"frequency"`
	YearClosed     bool             `json:"yearClosed"`
	Periods        []PeriodResponse `json:"periods"`
}

// ToPeriodResponse converts a domain.Period to its API representation.
func ToPeriodResponse(p *domain.Period) PeriodResponse {
	return PeriodResponse{
		PeriodNumber: p.PeriodNumber,
		Name:         p.Name,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		Status:       string(p.Status),
		IsYearEnd:    p.IsYearEnd,
		OpenedAt:     p.OpenedAt,
		OpenedBy:     p.OpenedBy,
		ClosedAt:     p.ClosedAt,
		ClosedBy:     p.ClosedBy,
		LockedAt:     p.LockedAt,
		LockedBy:     p.LockedBy,
		Notes:        p.Notes,
	}
}

// ToPeriodSetResponse converts a domain.PeriodSet to its API representation.
func ToPeriodSetResponse(ps *domain.PeriodSet) PeriodSetResponse {
	ordered := ps.OrderedPeriods()
	periods := make([]PeriodResponse, len(ordered))
	for i := range ordered {
		periods[i] = ToPeriodResponse(&ordered[i])
	}
	return PeriodSetResponse{
		OrganizationID: ps.OrganizationID,
		FiscalYear:     ps.FiscalYear,
		StartMonth:     ps.StartMonth,
		Frequency:      string(ps.Frequency),
		YearClosed:     ps.YearClosed,
		Periods:        periods,
	}
}
