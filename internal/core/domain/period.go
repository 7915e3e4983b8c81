package domain

import (
	"fmt"
	"time"
)

// PeriodStatus indicates the lifecycle state of a single accounting period.
type PeriodStatus string

const (
	PeriodStatusNotStarted PeriodStatus = "NOT_STARTED"
	PeriodStatusOpen       PeriodStatus = "OPEN"
	PeriodStatusClosed     PeriodStatus = "CLOSED"
	PeriodStatusLocked     PeriodStatus = "LOCKED"
)

// PeriodFrequency determines how many periods a fiscal year is divided into.
type PeriodFrequency string

const (
	FrequencyMonthly   PeriodFrequency = "MONTHLY"
	FrequencyQuarterly PeriodFrequency = "QUARTERLY"
	FrequencyYearly    PeriodFrequency = "YEARLY"
)

// PeriodsPerYear returns how many periods the frequency generates.
func (f PeriodFrequency) PeriodsPerYear() int {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencyYearly:
		return 1
	default:
		return 0
	}
}

// Period is one fixed date range within a fiscal year.
type Period struct {
	PeriodNumber int          `json:"periodNumber"`
	Name         string       `json:"name"`
	StartDate    time.Time    `json:"startDate"`
	EndDate      time.Time    `json:"endDate"`
	Status       PeriodStatus `json:"status"`
	IsYearEnd    bool         `json:"isYearEnd"`
	OpenedAt     *time.Time   `json:"openedAt,omitempty"`
	OpenedBy     string       `json:"openedBy,omitempty"`
	ClosedAt     *time.Time   `json:"closedAt,omitempty"`
	ClosedBy     string       `json:"closedBy,omitempty"`
	LockedAt     *time.Time   `json:"lockedAt,omitempty"`
	LockedBy     string       `json:"lockedBy,omitempty"`
	Notes        string       `json:"notes,omitempty"`
}

// Covers reports whether the given date falls inside the period's date range.
// Comparison is date-granular in UTC.
func (p *Period) Covers(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// PeriodSet is the materialized state of one organization+fiscal-year period
// container, rebuilt by replaying its event stream.
type PeriodSet struct {
	OrganizationID string          `json:"organizationID"`
	FiscalYear     int             `json:"fiscalYear"`
	StartMonth     int             `json:"startMonth"`
	Frequency      PeriodFrequency `json:"frequency"`
	Initialized    bool            `json:"initialized"`
	YearClosed     bool            `json:"yearClosed"`
	Periods        map[int]*Period `json:"periods"`

	Version int64 `json:"version"`
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// GeneratePeriods produces the contiguous, ordered periods for a fiscal year.
// Monthly yields 12 one-month periods, quarterly 4 three-month periods and
// yearly a single twelve-month period. The last period is flagged year-end.
func GeneratePeriods(fiscalYear, startMonth int, frequency PeriodFrequency) ([]Period, error) {
	if startMonth < 1 || startMonth > 12 {
		return nil, fmt.Errorf("start month must be between 1 and 12, got %d", startMonth)
	}
	count := frequency.PeriodsPerYear()
	if count == 0 {
		return nil, fmt.Errorf("unknown period frequency %q", frequency)
	}
	monthsPerPeriod := 12 / count

	periods := make([]Period, count)
	yearStart := time.Date(fiscalYear, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		start := yearStart.AddDate(0, i*monthsPerPeriod, 0)
		end := start.AddDate(0, monthsPerPeriod, -1)
		periods[i] = Period{
			PeriodNumber: i + 1,
			Name:         periodName(start, fiscalYear, i+1, frequency),
			StartDate:    start,
			EndDate:      end,
			Status:       PeriodStatusNotStarted,
			IsYearEnd:    i == count-1,
		}
	}
	return periods, nil
}

func periodName(start time.Time, fiscalYear, number int, frequency PeriodFrequency) string {
	switch frequency {
	case FrequencyMonthly:
		return start.Format("January 2006")
	case FrequencyQuarterly:
		return fmt.Sprintf("Q%d %d", number, fiscalYear)
	default:
		return fmt.Sprintf("FY %d", fiscalYear)
	}
}

// ApplyPeriodEvent is the period container reducer.
func (ps *PeriodSet) ApplyPeriodEvent(ev Event) error {
	switch ev.Type {
	case PeriodsInitialized:
		var p PeriodsInitializedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		ps.OrganizationID = ev.OrganizationID
		ps.FiscalYear = p.FiscalYear
		ps.StartMonth = p.StartMonth
		ps.Frequency = p.Frequency
		ps.Initialized = true
		ps.Periods = make(map[int]*Period, len(p.Periods))
		for i := range p.Periods {
			period := p.Periods[i]
			ps.Periods[period.PeriodNumber] = &period
		}
	case PeriodOpened:
		var p PeriodOpenedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		period, ok := ps.Periods[p.PeriodNumber]
		if !ok {
			return fmt.Errorf("period %d not found while applying %s", p.PeriodNumber, ev.Type)
		}
		period.Status = PeriodStatusOpen
		at := ev.OccurredAt
		period.OpenedAt = &at
		period.OpenedBy = ev.Actor
		if p.Notes != "" {
			period.Notes = p.Notes
		}
	case PeriodClosed:
		var p PeriodClosedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		period, ok := ps.Periods[p.PeriodNumber]
		if !ok {
			return fmt.Errorf("period %d not found while applying %s", p.PeriodNumber, ev.Type)
		}
		period.Status = PeriodStatusClosed
		at := ev.OccurredAt
		period.ClosedAt = &at
		period.ClosedBy = ev.Actor
		if p.Notes != "" {
			period.Notes = p.Notes
		}
	case PeriodReopened:
		var p PeriodReopenedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		period, ok := ps.Periods[p.PeriodNumber]
		if !ok {
			return fmt.Errorf("period %d not found while applying %s", p.PeriodNumber, ev.Type)
		}
		period.Status = PeriodStatusOpen
		at := ev.OccurredAt
		period.OpenedAt = &at
		period.OpenedBy = ev.Actor
		if p.Notes != "" {
			period.Notes = p.Notes
		}
	case PeriodLocked:
		var p PeriodLockedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		period, ok := ps.Periods[p.PeriodNumber]
		if !ok {
			return fmt.Errorf("period %d not found while applying %s", p.PeriodNumber, ev.Type)
		}
		period.Status = PeriodStatusLocked
		at := ev.OccurredAt
		period.LockedAt = &at
		period.LockedBy = ev.Actor
		if p.Notes != "" {
			period.Notes = p.Notes
		}
	case FiscalYearClosed:
		var p FiscalYearClosedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		at := ev.OccurredAt
		for _, period := range ps.Periods {
			if period.Status != PeriodStatusLocked {
				period.Status = PeriodStatusLocked
				period.LockedAt = &at
				period.LockedBy = ev.Actor
			}
		}
		ps.YearClosed = true
	default:
		return fmt.Errorf("unknown period event type %q", ev.Type)
	}
	ps.Version = ev.Sequence
	return nil
}

// ReplayPeriodSet rebuilds a period container from its full event stream.
func ReplayPeriodSet(events []Event) (*PeriodSet, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("cannot replay period set from empty stream")
	}
	if events[0].Type != PeriodsInitialized {
		return nil, fmt.Errorf("period stream does not start with %s", PeriodsInitialized)
	}
	ps := &PeriodSet{}
	for _, ev := range events {
		if err := ps.ApplyPeriodEvent(ev); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// GetPeriod returns the period with the given number, or nil.
func (ps *PeriodSet) GetPeriod(number int) *Period {
	return ps.Periods[number]
}

// OrderedPeriods returns the periods sorted by period number.
func (ps *PeriodSet) OrderedPeriods() []Period {
	out := make([]Period, 0, len(ps.Periods))
	for i := 1; i <= len(ps.Periods); i++ {
		if p, ok := ps.Periods[i]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// CurrentOpenPeriod returns the lowest-numbered Open period, or nil.
func (ps *PeriodSet) CurrentOpenPeriod() *Period {
	for i := 1; i <= len(ps.Periods); i++ {
		if p, ok := ps.Periods[i]; ok && p.Status == PeriodStatusOpen {
			return p
		}
	}
	return nil
}

// PeriodForDate returns the period covering the given date, or nil.
func (ps *PeriodSet) PeriodForDate(date time.Time) *Period {
	for i := 1; i <= len(ps.Periods); i++ {
		if p, ok := ps.Periods[i]; ok && p.Covers(date) {
			return p
		}
	}
	return nil
}

// CanPostToDate reports whether a posting dated at the given date is allowed:
// the fiscal year must not be closed and the covering period must be Open.
func (ps *PeriodSet) CanPostToDate(date time.Time) bool {
	if ps.YearClosed {
		return false
	}
	p := ps.PeriodForDate(date)
	return p != nil && p.Status == PeriodStatusOpen
}
