package services

import (
	"context"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	"github.com/opsledger/backoffice_ledger/internal/dto"
)

// JournalEntryReaderSvc defines read operations over journal entry state.
// Reads are pure: they replay the entry's event stream and never mutate.
type JournalEntryReaderSvc interface {
	// GetEntry retrieves the current snapshot of an entry, including lines.
	GetEntry(ctx context.Context, organizationID, entryID string) (*domain.JournalEntry, error)

	// EntryExists reports whether an entry stream exists for the given ID.
	EntryExists(ctx context.Context, organizationID, entryID string) (bool, error)

	// GetEntryStatus returns the current status of an entry.
	GetEntryStatus(ctx context.Context, organizationID, entryID string) (domain.EntryStatus, error)

	// ListEntries retrieves the entries of an organization, optionally
	// filtered by status.
	ListEntries(ctx context.Context, organizationID string, params dto.ListEntriesParams) ([]domain.JournalEntry, error)
}

// JournalEntryWriterSvc defines the entry lifecycle commands. Each command
// runs to completion under the entry's single-writer lock: it either appends
// events and returns the updated snapshot, or fails with no mutation.
type JournalEntryWriterSvc interface {
	// CreateEntry validates and creates a new draft entry; with AutoPost set
	// it immediately posts under the same actor.
	CreateEntry(ctx context.Context, organizationID string, req dto.CreateEntryRequest, createdBy string) (*domain.JournalEntry, error)

	// PostEntry posts a Draft or Approved entry into its target period.
	PostEntry(ctx context.Context, organizationID, entryID string, req dto.PostEntryRequest, postedBy string) (*domain.JournalEntry, error)

	// SubmitEntry moves a Draft entry to PendingApproval.
	SubmitEntry(ctx context.Context, organizationID, entryID string, req dto.SubmitEntryRequest, submittedBy string) (*domain.JournalEntry, error)

	// ApproveEntry approves a Draft or PendingApproval entry.
	ApproveEntry(ctx context.Context, organizationID, entryID string, req dto.ApproveEntryRequest, approvedBy string) (*domain.JournalEntry, error)

	// RejectEntry rejects an entry that has not been posted or voided.
	RejectEntry(ctx context.Context, organizationID, entryID string, req dto.RejectEntryRequest, rejectedBy string) (*domain.JournalEntry, error)

	// VoidEntry voids an entry that has not been posted.
	VoidEntry(ctx context.Context, organizationID, entryID string, req dto.VoidEntryRequest, voidedBy string) (*domain.JournalEntry, error)

	// ReverseEntry creates and posts a new entry offsetting a posted one,
	// then links the original to it. Returns the reversing entry.
	ReverseEntry(ctx context.Context, organizationID, entryID string, req dto.ReverseEntryRequest, reversedBy string) (*domain.JournalEntry, error)
}

// JournalEntrySvcFacade combines all journal entry service interfaces.
type JournalEntrySvcFacade interface {
	JournalEntryReaderSvc
	JournalEntryWriterSvc
}
