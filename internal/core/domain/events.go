package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies one member of the closed set of event kinds an entity
// stream may contain.
type EventType string

// Journal entry stream events.
const (
	EntryCreated   EventType = "ENTRY_CREATED"
	EntrySubmitted EventType = "ENTRY_SUBMITTED"
	EntryApproved  EventType = "ENTRY_APPROVED"
	EntryRejected  EventType = "ENTRY_REJECTED"
	EntryPosted    EventType = "ENTRY_POSTED"
	EntryVoided    EventType = "ENTRY_VOIDED"
	EntryReversed  EventType = "ENTRY_REVERSED"
)

// Period stream events.
const (
	PeriodsInitialized EventType = "PERIODS_INITIALIZED"
	PeriodOpened       EventType = "PERIOD_OPENED"
	PeriodClosed       EventType = "PERIOD_CLOSED"
	PeriodReopened     EventType = "PERIOD_REOPENED"
	PeriodLocked       EventType = "PERIOD_LOCKED"
	FiscalYearClosed   EventType = "FISCAL_YEAR_CLOSED"
)

// Event is the immutable envelope persisted in an entity's append-only stream.
// Sequence is 1-based and strictly increasing per stream; replaying a stream's
// events in sequence order through the entity's reducer reproduces its state.
type Event struct {
	EventID        string          `json:"eventID"`
	StreamID       string          `json:"streamID"`
	OrganizationID string          `json:"organizationID"`
	Sequence       int64           `json:"sequence"`
	Type           EventType       `json:"type"`
	OccurredAt     time.Time       `json:"occurredAt"`
	Actor          string          `json:"actor"`
	Payload        json.RawMessage `json:"payload"`
}

// NewEvent builds an event envelope, marshalling the typed payload to JSON.
func NewEvent(streamID, organizationID string, sequence int64, eventType EventType, actor string, occurredAt time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		EventID:        uuid.NewString(),
		StreamID:       streamID,
		OrganizationID: organizationID,
		Sequence:       sequence,
		Type:           eventType,
		OccurredAt:     occurredAt,
		Actor:          actor,
		Payload:        raw,
	}, nil
}

// DecodePayload unmarshals the event payload into the given typed payload struct.
func (e Event) DecodePayload(out any) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s payload for event %s: %w", e.Type, e.EventID, err)
	}
	return nil
}

// EntryStreamID returns the stream key for a journal entry entity.
func EntryStreamID(entryID string) string {
	return "journal:" + entryID
}

// PeriodStreamID returns the stream key for an organization's fiscal-year
// period container.
func PeriodStreamID(organizationID string, fiscalYear int) string {
	return fmt.Sprintf("period:%s:%d", organizationID, fiscalYear)
}

// EntryCreatedPayload captures everything needed to rebuild a draft entry.
type EntryCreatedPayload struct {
	EntryNumber         string             `json:"entryNumber"`
	PostingDate         time.Time          `json:"postingDate"`
	EffectiveDate       time.Time          `json:"effectiveDate"`
	Memo                string             `json:"memo,omitempty"`
	Lines               []JournalEntryLine `json:"lines"`
	Reference           *EntryReference    `json:"reference,omitempty"`
	IsReversing         bool               `json:"isReversing,omitempty"`
	ReversedFromEntryID string             `json:"reversedFromEntryID,omitempty"`
}

// EntrySubmittedPayload records a draft being sent for approval.
type EntrySubmittedPayload struct {
	Notes string `json:"notes,omitempty"`
}

// EntryApprovedPayload records an approval decision.
type EntryApprovedPayload struct {
	Notes string `json:"notes,omitempty"`
}

// EntryRejectedPayload records a rejection decision and its reason.
type EntryRejectedPayload struct {
	Reason string `json:"reason"`
}

// EntryPostedPayload records the successful posting of an entry.
type EntryPostedPayload struct {
	PeriodNumber int    `json:"periodNumber"`
	Notes        string `json:"notes,omitempty"`
}

// EntryVoidedPayload records a void and its reason.
type EntryVoidedPayload struct {
	Reason string `json:"reason"`
}

// EntryReversedPayload links the original entry to its reversing entry.
type EntryReversedPayload struct {
	ReversalEntryID string    `json:"reversalEntryID"`
	ReversalDate    time.Time `json:"reversalDate"`
	Reason          string    `json:"reason,omitempty"`
}

// PeriodsInitializedPayload carries the full generated period set.
type PeriodsInitializedPayload struct {
	FiscalYear int             `json:"fiscalYear"`
	StartMonth int             `json:"startMonth"`
	Frequency  PeriodFrequency `json:"frequency"`
	Periods    []Period        `json:"periods"`
}

// PeriodOpenedPayload records a period transitioning to Open.
type PeriodOpenedPayload struct {
	PeriodNumber int    `json:"periodNumber"`
	Notes        string `json:"notes,omitempty"`
}

// PeriodClosedPayload records a period transitioning to Closed. Forced is set
// when a NotStarted period was closed explicitly.
type PeriodClosedPayload struct {
	PeriodNumber int    `json:"periodNumber"`
	Forced       bool   `json:"forced,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// PeriodReopenedPayload records a closed period being reopened.
type PeriodReopenedPayload struct {
	PeriodNumber int    `json:"periodNumber"`
	Notes        string `json:"notes,omitempty"`
}

// PeriodLockedPayload records a period transitioning to Locked.
type PeriodLockedPayload struct {
	PeriodNumber int    `json:"periodNumber"`
	Notes        string `json:"notes,omitempty"`
}

// FiscalYearClosedPayload records year-end close. The reducer locks every
// remaining non-locked period when applying this event.
type FiscalYearClosedPayload struct {
	RetainedEarningsAccount string `json:"retainedEarningsAccount"`
	Notes                   string `json:"notes,omitempty"`
}
