package dto

import (
	"time"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateEntryLineRequest is one line of a new journal entry. Exactly one of
// debit/credit must be positive; the service enforces this.
type CreateEntryLineRequest struct {
	AccountNumber string          `json:"accountNumber" binding:"required"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Description   string          `json:"description"`
	CostCenter    string          `json:"costCenter"`
	TaxCode       string          `json:"taxCode"`
}

// EntryReferenceRequest links the entry to an originating document.
type EntryReferenceRequest struct {
	Number string `json:"number"`
	Type   string `json:"type"`
	ID     string `json:"id"`
}

// CreateEntryRequest defines the payload for creating a journal entry.
// EntryID is caller-supplied and may be used only once.
type CreateEntryRequest struct {
	EntryID       string                   `json:"entryID" binding:"required"`
	PostingDate   time.Time                `json:"postingDate" binding:"required"`
	EffectiveDate *time.Time               `json:"effectiveDate"`
	Memo          string                   `json:"memo"`
	Lines         []CreateEntryLineRequest `json:"lines" binding:"required,min=2,dive"`
	Reference     *EntryReferenceRequest   `json:"reference"`
	AutoPost      bool                     `json:"autoPost"`
}

// PostEntryRequest defines the payload for posting an entry.
type PostEntryRequest struct {
	Notes string `json:"notes"`
}

// SubmitEntryRequest defines the payload for submitting a draft for approval.
type SubmitEntryRequest struct {
	Notes string `json:"notes"`
}

// ApproveEntryRequest defines the payload for approving an entry.
type ApproveEntryRequest struct {
	Notes string `json:"notes"`
}

// RejectEntryRequest defines the payload for rejecting an entry.
type RejectEntryRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// VoidEntryRequest defines the payload for voiding an entry.
type VoidEntryRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReverseEntryRequest defines the payload for reversing a posted entry.
type ReverseEntryRequest struct {
	ReversalDate time.Time `json:"reversalDate" binding:"required"`
	Reason       string    `json:"reason"`
}

// ListEntriesParams holds filters for listing journal entries.
type ListEntriesParams struct {
	Status string `form:"status"`
}

// EntryLineResponse is the API representation of a journal entry line.
type EntryLineResponse struct {
	AccountNumber string          `json:"accountNumber"`
	AccountName   string          `json:"accountName"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Description   string          `json:"description,omitempty"`
	CostCenter    string          `json:"costCenter,omitempty"`
	TaxCode       string          `json:"taxCode,omitempty"`
}

// EntryResponse is the API representation of a journal entry snapshot.
type EntryResponse struct {
	EntryID             string              `json:"entryID"`
	OrganizationID      string              `json:"organizationID"`
	EntryNumber         string              `json:"entryNumber"`
	PostingDate         time.Time           `json:"postingDate"`
	EffectiveDate       time.Time           `json:"effectiveDate"`
	Memo                string              `json:"memo,omitempty"`
	Lines               []EntryLineResponse `json:"lines"`
	TotalDebits         decimal.Decimal     `json:"totalDebits"`
	TotalCredits        decimal.Decimal     `json:"totalCredits"`
	Status              string              `json:"status"`
	ReversedByEntryID   string              `json:"reversedByEntryID,omitempty"`
	ReversedFromEntryID string              `json:"reversedFromEntryID,omitempty"`
	IsReversing         bool                `json:"isReversing,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
	CreatedBy           string              `json:"createdBy"`
	PostedAt            *time.Time          `json:"postedAt,omitempty"`
	PostedBy            string              `json:"postedBy,omitempty"`
	RejectionReason     string              `json:"rejectionReason,omitempty"`
	VoidReason          string              `json:"voidReason,omitempty"`
}

// ListEntriesResponse wraps a list of entry snapshots.
type ListEntriesResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// ToEntryResponse converts a domain.JournalEntry to its API representation.
func ToEntryResponse(e *domain.JournalEntry) EntryResponse {
	lines := make([]EntryLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = EntryLineResponse{
			AccountNumber: l.AccountNumber,
			AccountName:   l.AccountName,
			Debit:         l.Debit,
			Credit:        l.Credit,
			Description:   l.Description,
			CostCenter:    l.CostCenter,
			TaxCode:       l.TaxCode,
		}
	}
	return EntryResponse{
		EntryID:             e.EntryID,
		OrganizationID:      e.OrganizationID,
		EntryNumber:         e.EntryNumber,
		PostingDate:         e.PostingDate,
		EffectiveDate:       e.EffectiveDate,
		Memo:                e.Memo,
		Lines:               lines,
		TotalDebits:         e.TotalDebits,
		TotalCredits:        e.TotalCredits,
		Status:              string(e.Status),
		ReversedByEntryID:   e.ReversedByEntryID,
		ReversedFromEntryID: e.ReversedFromEntryID,
		IsReversing:         e.IsReversing,
		CreatedAt:           e.CreatedAt,
		CreatedBy:           e.CreatedBy,
		PostedAt:            e.PostedAt,
		PostedBy:            e.PostedBy,
		RejectionReason:     e.RejectionReason,
		VoidReason:          e.VoidReason,
	}
}

// ToEntryResponses converts a slice of domain entries.
func ToEntryResponses(entries []domain.JournalEntry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToEntryResponse(&entries[i])
	}
	return responses
}
