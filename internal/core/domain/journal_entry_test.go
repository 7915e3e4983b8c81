package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
)

func testLines() []domain.JournalEntryLine {
	return []domain.JournalEntryLine{
		{AccountNumber: "1000", AccountName: "Cash", Debit: decimal.NewFromInt(250), Credit: decimal.Zero},
		{AccountNumber: "4000", AccountName: "Revenue", Debit: decimal.Zero, Credit: decimal.NewFromInt(250)},
	}
}

func mustEvent(t *testing.T, streamID, orgID string, seq int64, eventType domain.EventType, actor string, at time.Time, payload any) domain.Event {
	t.Helper()
	ev, err := domain.NewEvent(streamID, orgID, seq, eventType, actor, at, payload)
	require.NoError(t, err)
	return ev
}

func TestReplayJournalEntry_FullLifecycle(t *testing.T) {
	entryID := uuid.NewString()
	streamID := domain.EntryStreamID(entryID)
	orgID := uuid.NewString()
	createdAt := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	created := mustEvent(t, streamID, orgID, 1, domain.EntryCreated, "alice", createdAt, domain.EntryCreatedPayload{
		EntryNumber:   "JE-20250310-AB12CD",
		PostingDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		EffectiveDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Memo:          "March revenue",
		Lines:         testLines(),
	})
	submitted := mustEvent(t, streamID, orgID, 2, domain.EntrySubmitted, "alice", createdAt.Add(time.Minute), domain.EntrySubmittedPayload{})
	approved := mustEvent(t, streamID, orgID, 3, domain.EntryApproved, "bob", createdAt.Add(2*time.Minute), domain.EntryApprovedPayload{Notes: "ok"})
	posted := mustEvent(t, streamID, orgID, 4, domain.EntryPosted, "bob", createdAt.Add(3*time.Minute), domain.EntryPostedPayload{PeriodNumber: 3})

	entry, err := domain.ReplayJournalEntry(entryID, []domain.Event{created, submitted, approved, posted})
	require.NoError(t, err)

	assert.Equal(t, entryID, entry.EntryID)
	assert.Equal(t, orgID, entry.OrganizationID)
	assert.Equal(t, "JE-20250310-AB12CD", entry.EntryNumber)
	assert.Equal(t, domain.EntryStatusPosted, entry.Status)
	assert.True(t, entry.TotalDebits.Equal(decimal.NewFromInt(250)))
	assert.True(t, entry.TotalCredits.Equal(decimal.NewFromInt(250)))
	assert.True(t, entry.TotalAmount().Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "alice", entry.CreatedBy)
	assert.Equal(t, "bob", entry.PostedBy)
	require.NotNil(t, entry.PostedAt)
	assert.Equal(t, createdAt.Add(3*time.Minute), *entry.PostedAt)
	require.NotNil(t, entry.ApprovedAt)
	assert.Equal(t, "bob", entry.ApprovedBy)
	assert.Equal(t, int64(4), entry.Version)
}

func TestReplayJournalEntry_Deterministic(t *testing.T) {
	entryID := uuid.NewString()
	streamID := domain.EntryStreamID(entryID)
	orgID := uuid.NewString()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	events := []domain.Event{
		mustEvent(t, streamID, orgID, 1, domain.EntryCreated, "alice", at, domain.EntryCreatedPayload{
			EntryNumber: "JE-20250601-000001",
			PostingDate: at,
			Lines:       testLines(),
		}),
		mustEvent(t, streamID, orgID, 2, domain.EntryPosted, "alice", at.Add(time.Second), domain.EntryPostedPayload{PeriodNumber: 6}),
	}

	first, err := domain.ReplayJournalEntry(entryID, events)
	require.NoError(t, err)
	second, err := domain.ReplayJournalEntry(entryID, events)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestApplyEntryEvent_Reversed(t *testing.T) {
	entryID := uuid.NewString()
	streamID := domain.EntryStreamID(entryID)
	orgID := uuid.NewString()
	at := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	reversalID := uuid.NewString()

	entry, err := domain.ReplayJournalEntry(entryID, []domain.Event{
		mustEvent(t, streamID, orgID, 1, domain.EntryCreated, "alice", at, domain.EntryCreatedPayload{
			EntryNumber: "JE-20250228-FFAA00",
			PostingDate: at,
			Lines:       testLines(),
		}),
		mustEvent(t, streamID, orgID, 2, domain.EntryPosted, "alice", at, domain.EntryPostedPayload{PeriodNumber: 2}),
		mustEvent(t, streamID, orgID, 3, domain.EntryReversed, "bob", at.AddDate(0, 0, 1), domain.EntryReversedPayload{
			ReversalEntryID: reversalID,
			ReversalDate:    at.AddDate(0, 0, 1),
			Reason:          "booked twice",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, domain.EntryStatusReversed, entry.Status)
	assert.Equal(t, reversalID, entry.ReversedByEntryID)
	assert.True(t, entry.Status.IsTerminal())
}

func TestApplyEntryEvent_RejectAndVoidCaptureReasons(t *testing.T) {
	entryID := uuid.NewString()
	streamID := domain.EntryStreamID(entryID)
	orgID := uuid.NewString()
	at := time.Now().UTC()

	rejected, err := domain.ReplayJournalEntry(entryID, []domain.Event{
		mustEvent(t, streamID, orgID, 1, domain.EntryCreated, "alice", at, domain.EntryCreatedPayload{EntryNumber: "JE-1", PostingDate: at, Lines: testLines()}),
		mustEvent(t, streamID, orgID, 2, domain.EntrySubmitted, "alice", at, domain.EntrySubmittedPayload{}),
		mustEvent(t, streamID, orgID, 3, domain.EntryRejected, "bob", at, domain.EntryRejectedPayload{Reason: "wrong account"}),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusRejected, rejected.Status)
	assert.Equal(t, "wrong account", rejected.RejectionReason)

	voided, err := domain.ReplayJournalEntry(entryID, []domain.Event{
		mustEvent(t, streamID, orgID, 1, domain.EntryCreated, "alice", at, domain.EntryCreatedPayload{EntryNumber: "JE-2", PostingDate: at, Lines: testLines()}),
		mustEvent(t, streamID, orgID, 2, domain.EntryVoided, "alice", at, domain.EntryVoidedPayload{Reason: "duplicate"}),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusVoided, voided.Status)
	assert.Equal(t, "duplicate", voided.VoidReason)
}

func TestReplayJournalEntry_RejectsBadStreams(t *testing.T) {
	entryID := uuid.NewString()
	streamID := domain.EntryStreamID(entryID)
	orgID := uuid.NewString()
	at := time.Now().UTC()

	_, err := domain.ReplayJournalEntry(entryID, nil)
	assert.Error(t, err)

	// Stream must start with the creation event.
	_, err = domain.ReplayJournalEntry(entryID, []domain.Event{
		mustEvent(t, streamID, orgID, 1, domain.EntryPosted, "alice", at, domain.EntryPostedPayload{PeriodNumber: 1}),
	})
	assert.Error(t, err)
}
