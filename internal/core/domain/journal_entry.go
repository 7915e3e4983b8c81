package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus indicates the lifecycle state of a journal entry.
type EntryStatus string

const (
	EntryStatusDraft           EntryStatus = "DRAFT"
	EntryStatusPendingApproval EntryStatus = "PENDING_APPROVAL"
	EntryStatusApproved        EntryStatus = "APPROVED"
	EntryStatusPosted          EntryStatus = "POSTED"
	EntryStatusRejected        EntryStatus = "REJECTED"
	EntryStatusVoided          EntryStatus = "VOIDED"
	EntryStatusReversed        EntryStatus = "REVERSED"
)

// IsTerminal reports whether no further command may mutate an entry in this
// status. Posted is not terminal here because Reverse still applies to it.
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusRejected || s == EntryStatusVoided || s == EntryStatusReversed
}

// EntryReference links a journal entry to an originating document
// (invoice, bill, bank statement line, ...).
type EntryReference struct {
	Number string `json:"number,omitempty"`
	Type   string `json:"type,omitempty"`
	ID     string `json:"id,omitempty"`
}

// JournalEntryLine is a single line of a journal entry, affecting one account.
// Exactly one of Debit/Credit is positive; the other is zero.
type JournalEntryLine struct {
	AccountNumber string          `json:"accountNumber"`
	AccountName   string          `json:"accountName"` // Snapshotted from the account directory at creation
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Description   string          `json:"description,omitempty"`
	CostCenter    string          `json:"costCenter,omitempty"`
	TaxCode       string          `json:"taxCode,omitempty"`
}

// JournalEntry is the materialized state of one journal entry entity, rebuilt
// by replaying its event stream. Version is the sequence of the last applied
// event and doubles as the expected version for optimistic appends.
type JournalEntry struct {
	EntryID        string             `json:"entryID"`
	OrganizationID string             `json:"organizationID"`
	EntryNumber    string             `json:"entryNumber"`
	PostingDate    time.Time          `json:"postingDate"`
	EffectiveDate  time.Time          `json:"effectiveDate"`
	Memo           string             `json:"memo,omitempty"`
	Lines          []JournalEntryLine `json:"lines"`
	TotalDebits    decimal.Decimal    `json:"totalDebits"`
	TotalCredits   decimal.Decimal    `json:"totalCredits"`
	Status         EntryStatus        `json:"status"`
	Reference      *EntryReference    `json:"reference,omitempty"`

	// Reversal linkage: ReversedByEntryID is set on the original once it has
	// been reversed; ReversedFromEntryID marks a reversing entry.
	ReversedByEntryID   string `json:"reversedByEntryID,omitempty"`
	ReversedFromEntryID string `json:"reversedFromEntryID,omitempty"`
	IsReversing         bool   `json:"isReversing,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	CreatedBy  string     `json:"createdBy"`
	PostedAt   *time.Time `json:"postedAt,omitempty"`
	PostedBy   string     `json:"postedBy,omitempty"`
	ApprovedAt *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy string     `json:"approvedBy,omitempty"`

	RejectionReason string `json:"rejectionReason,omitempty"`
	VoidReason      string `json:"voidReason,omitempty"`

	Version int64 `json:"version"`
}

// ApplyEntryEvent is the journal entry reducer. It folds one event into the
// entry state and must stay deterministic: state depends only on prior state
// and event contents, never on wall-clock or external lookups.
func (e *JournalEntry) ApplyEntryEvent(ev Event) error {
	switch ev.Type {
	case EntryCreated:
		var p EntryCreatedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		e.OrganizationID = ev.OrganizationID
		e.EntryNumber = p.EntryNumber
		e.PostingDate = p.PostingDate
		e.EffectiveDate = p.EffectiveDate
		e.Memo = p.Memo
		e.Lines = p.Lines
		e.Reference = p.Reference
		e.IsReversing = p.IsReversing
		e.ReversedFromEntryID = p.ReversedFromEntryID
		e.Status = EntryStatusDraft
		e.CreatedAt = ev.OccurredAt
		e.CreatedBy = ev.Actor
		e.TotalDebits = decimal.Zero
		e.TotalCredits = decimal.Zero
		for _, line := range p.Lines {
			e.TotalDebits = e.TotalDebits.Add(line.Debit)
			e.TotalCredits = e.TotalCredits.Add(line.Credit)
		}
	case EntrySubmitted:
		e.Status = EntryStatusPendingApproval
	case EntryApproved:
		e.Status = EntryStatusApproved
		at := ev.OccurredAt
		e.ApprovedAt = &at
		e.ApprovedBy = ev.Actor
	case EntryRejected:
		var p EntryRejectedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		e.Status = EntryStatusRejected
		e.RejectionReason = p.Reason
	case EntryPosted:
		e.Status = EntryStatusPosted
		at := ev.OccurredAt
		e.PostedAt = &at
		e.PostedBy = ev.Actor
	case EntryVoided:
		var p EntryVoidedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		e.Status = EntryStatusVoided
		e.VoidReason = p.Reason
	case EntryReversed:
		var p EntryReversedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		e.Status = EntryStatusReversed
		e.ReversedByEntryID = p.ReversalEntryID
	default:
		return fmt.Errorf("unknown journal entry event type %q", ev.Type)
	}
	e.Version = ev.Sequence
	return nil
}

// ReplayJournalEntry rebuilds a journal entry from its full event stream.
// Events must be ordered by sequence; the first must be EntryCreated.
func ReplayJournalEntry(entryID string, events []Event) (*JournalEntry, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("cannot replay journal entry %s from empty stream", entryID)
	}
	if events[0].Type != EntryCreated {
		return nil, fmt.Errorf("journal entry stream %s does not start with %s", entryID, EntryCreated)
	}
	entry := &JournalEntry{EntryID: entryID}
	for _, ev := range events {
		if err := entry.ApplyEntryEvent(ev); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// TotalAmount is the economic value of a balanced entry: the sum of one side.
func (e *JournalEntry) TotalAmount() decimal.Decimal {
	return e.TotalDebits
}
