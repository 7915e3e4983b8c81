package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
)

func TestGeneratePeriods_Monthly(t *testing.T) {
	periods, err := domain.GeneratePeriods(2025, 1, domain.FrequencyMonthly)
	require.NoError(t, err)
	require.Len(t, periods, 12)

	assert.Equal(t, 1, periods[0].PeriodNumber)
	assert.Equal(t, "January 2025", periods[0].Name)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), periods[0].StartDate)
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), periods[0].EndDate)

	// February ends on the 28th in a non-leap year.
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), periods[1].EndDate)

	assert.Equal(t, "December 2025", periods[11].Name)
	assert.True(t, periods[11].IsYearEnd)
	assert.False(t, periods[10].IsYearEnd)

	// Contiguous: each period starts the day after its predecessor ends.
	for i := 1; i < len(periods); i++ {
		assert.Equal(t, periods[i-1].EndDate.AddDate(0, 0, 1), periods[i].StartDate)
	}
	for _, p := range periods {
		assert.Equal(t, domain.PeriodStatusNotStarted, p.Status)
	}
}

func TestGeneratePeriods_MonthlyFiscalYearStartsInApril(t *testing.T) {
	periods, err := domain.GeneratePeriods(2025, 4, domain.FrequencyMonthly)
	require.NoError(t, err)
	require.Len(t, periods, 12)

	assert.Equal(t, "April 2025", periods[0].Name)
	// The last period spills into the next calendar year.
	assert.Equal(t, "March 2026", periods[11].Name)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), periods[11].StartDate)
	assert.Equal(t, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), periods[11].EndDate)
}

func TestGeneratePeriods_Quarterly(t *testing.T) {
	periods, err := domain.GeneratePeriods(2025, 1, domain.FrequencyQuarterly)
	require.NoError(t, err)
	require.Len(t, periods, 4)

	assert.Equal(t, "Q1 2025", periods[0].Name)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), periods[0].EndDate)
	assert.Equal(t, "Q4 2025", periods[3].Name)
	assert.True(t, periods[3].IsYearEnd)
}

func TestGeneratePeriods_Yearly(t *testing.T) {
	periods, err := domain.GeneratePeriods(2025, 1, domain.FrequencyYearly)
	require.NoError(t, err)
	require.Len(t, periods, 1)

	assert.Equal(t, "FY 2025", periods[0].Name)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), periods[0].EndDate)
	assert.True(t, periods[0].IsYearEnd)
}

func TestGeneratePeriods_InvalidInput(t *testing.T) {
	_, err := domain.GeneratePeriods(2025, 0, domain.FrequencyMonthly)
	assert.Error(t, err)
	_, err = domain.GeneratePeriods(2025, 13, domain.FrequencyMonthly)
	assert.Error(t, err)
	_, err = domain.GeneratePeriods(2025, 1, domain.PeriodFrequency("WEEKLY"))
	assert.Error(t, err)
}

func TestPeriodCovers_DateGranular(t *testing.T) {
	p := domain.Period{
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, p.Covers(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
	// A timestamp late on the last day still falls inside the period.
	assert.True(t, p.Covers(time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Covers(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.Covers(time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC)))
}

func newInitializedSet(t *testing.T, orgID string, fiscalYear int) *domain.PeriodSet {
	t.Helper()
	periods, err := domain.GeneratePeriods(fiscalYear, 1, domain.FrequencyMonthly)
	require.NoError(t, err)

	streamID := domain.PeriodStreamID(orgID, fiscalYear)
	ev := mustEvent(t, streamID, orgID, 1, domain.PeriodsInitialized, "admin", time.Now().UTC(), domain.PeriodsInitializedPayload{
		FiscalYear: fiscalYear,
		StartMonth: 1,
		Frequency:  domain.FrequencyMonthly,
		Periods:    periods,
	})
	set := &domain.PeriodSet{}
	require.NoError(t, set.ApplyPeriodEvent(ev))
	return set
}

func TestApplyPeriodEvent_OpenCloseLock(t *testing.T) {
	orgID := uuid.NewString()
	set := newInitializedSet(t, orgID, 2025)
	streamID := domain.PeriodStreamID(orgID, 2025)
	at := time.Now().UTC()

	require.NoError(t, set.ApplyPeriodEvent(mustEvent(t, streamID, orgID, 2, domain.PeriodOpened, "admin", at, domain.PeriodOpenedPayload{PeriodNumber: 1})))
	assert.Equal(t, domain.PeriodStatusOpen, set.GetPeriod(1).Status)
	assert.Equal(t, "admin", set.GetPeriod(1).OpenedBy)

	require.NoError(t, set.ApplyPeriodEvent(mustEvent(t, streamID, orgID, 3, domain.PeriodClosed, "admin", at, domain.PeriodClosedPayload{PeriodNumber: 1})))
	assert.Equal(t, domain.PeriodStatusClosed, set.GetPeriod(1).Status)

	require.NoError(t, set.ApplyPeriodEvent(mustEvent(t, streamID, orgID, 4, domain.PeriodLocked, "admin", at, domain.PeriodLockedPayload{PeriodNumber: 1})))
	assert.Equal(t, domain.PeriodStatusLocked, set.GetPeriod(1).Status)
	assert.Equal(t, int64(4), set.Version)
}

func TestApplyPeriodEvent_FiscalYearClosedLocksEverything(t *testing.T) {
	orgID := uuid.NewString()
	set := newInitializedSet(t, orgID, 2025)
	streamID := domain.PeriodStreamID(orgID, 2025)
	at := time.Now().UTC()

	require.NoError(t, set.ApplyPeriodEvent(mustEvent(t, streamID, orgID, 2, domain.FiscalYearClosed, "admin", at, domain.FiscalYearClosedPayload{
		RetainedEarningsAccount: "3900",
	})))

	assert.True(t, set.YearClosed)
	for _, p := range set.OrderedPeriods() {
		assert.Equal(t, domain.PeriodStatusLocked, p.Status)
	}
}

func TestPeriodSetQueries(t *testing.T) {
	orgID := uuid.NewString()
	set := newInitializedSet(t, orgID, 2025)
	streamID := domain.PeriodStreamID(orgID, 2025)
	at := time.Now().UTC()

	assert.Nil(t, set.CurrentOpenPeriod())
	assert.False(t, set.CanPostToDate(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, set.ApplyPeriodEvent(mustEvent(t, streamID, orgID, 2, domain.PeriodOpened, "admin", at, domain.PeriodOpenedPayload{PeriodNumber: 1})))
	require.NoError(t, set.ApplyPeriodEvent(mustEvent(t, streamID, orgID, 3, domain.PeriodOpened, "admin", at, domain.PeriodOpenedPayload{PeriodNumber: 2})))
	require.NoError(t, set.ApplyPeriodEvent(mustEvent(t, streamID, orgID, 4, domain.PeriodClosed, "admin", at, domain.PeriodClosedPayload{PeriodNumber: 1})))

	open := set.CurrentOpenPeriod()
	require.NotNil(t, open)
	assert.Equal(t, 2, open.PeriodNumber)

	feb := set.PeriodForDate(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, feb)
	assert.Equal(t, 2, feb.PeriodNumber)

	assert.True(t, set.CanPostToDate(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)))
	// January is closed again.
	assert.False(t, set.CanPostToDate(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)))

	ordered := set.OrderedPeriods()
	require.Len(t, ordered, 12)
	for i, p := range ordered {
		assert.Equal(t, i+1, p.PeriodNumber)
	}
}
