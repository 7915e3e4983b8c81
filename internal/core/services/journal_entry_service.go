package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/opsledger/backoffice_ledger/internal/apperrors"
	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	portsrepo "github.com/opsledger/backoffice_ledger/internal/core/ports/repositories"
	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
	"github.com/opsledger/backoffice_ledger/internal/dto"
	"github.com/opsledger/backoffice_ledger/internal/middleware"
	"github.com/opsledger/backoffice_ledger/internal/utils"
)

var (
	ErrEntryUnbalanced = errors.New("debits must equal credits")
	ErrEntryZeroTotal  = errors.New("entry total must be nonzero")
	ErrEntryMinLines   = errors.New("entry must have at least two lines")
	ErrLineSingleSided = errors.New("exactly one of debit or credit must be positive per line")
	ErrNegativeAmount  = errors.New("line amounts must not be negative")
	ErrAccountInvalid  = errors.New("account is unknown or inactive")
	ErrAlreadyReversed = errors.New("entry has already been reversed")
)

// journalEntryService owns the journal entry lifecycle. Every command is
// serialized per entry through the stream locker; validation runs fully
// before any event is appended, so a failed command leaves the entry's stream
// untouched. Cross-entity calls (account directory at creation, period
// container at posting) are synchronous read queries only and are not wrapped
// in a shared lock or transaction.
type journalEntryService struct {
	eventStore portsrepo.EventStore
	accounts   portssvc.AccountDirectory
	periods    portssvc.PeriodReaderSvc
	notifier   portssvc.PostingNotifier
	locker     *streamLocker
}

// NewJournalEntryService creates a new JournalEntryService.
func NewJournalEntryService(eventStore portsrepo.EventStore, accounts portssvc.AccountDirectory, periods portssvc.PeriodReaderSvc, notifier portssvc.PostingNotifier) portssvc.JournalEntrySvcFacade {
	return &journalEntryService{
		eventStore: eventStore,
		accounts:   accounts,
		periods:    periods,
		notifier:   notifier,
		locker:     newStreamLocker(),
	}
}

var _ portssvc.JournalEntrySvcFacade = (*journalEntryService)(nil)

// validateLines checks the double-entry invariants: at least two lines, no
// negative amounts, exactly one positive side per line, and balanced nonzero
// totals. It runs before any account lookup or event append.
func (s *journalEntryService) validateLines(lines []dto.CreateEntryLineRequest) error {
	if len(lines) < 2 {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrEntryMinLines)
	}

	totalDebits := decimal.Zero
	totalCredits := decimal.Zero
	for i, line := range lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("%w: %w on line %d", apperrors.ErrValidation, ErrNegativeAmount, i+1)
		}
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if debitSet == creditSet {
			return fmt.Errorf("%w: %w, line %d has debit %s and credit %s", apperrors.ErrValidation, ErrLineSingleSided, i+1, line.Debit, line.Credit)
		}
		totalDebits = totalDebits.Add(line.Debit)
		totalCredits = totalCredits.Add(line.Credit)
	}

	if !totalDebits.Equal(totalCredits) {
		return fmt.Errorf("%w: %w (debits %s, credits %s)", apperrors.ErrValidation, ErrEntryUnbalanced, totalDebits, totalCredits)
	}
	if totalDebits.IsZero() {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, ErrEntryZeroTotal)
	}
	return nil
}

// resolveLines validates each line's account against the account directory
// (once per line) and snapshots the account name onto the line.
func (s *journalEntryService) resolveLines(ctx context.Context, organizationID string, lines []dto.CreateEntryLineRequest) ([]domain.JournalEntryLine, error) {
	resolved := make([]domain.JournalEntryLine, len(lines))
	for i, line := range lines {
		account, err := s.accounts.GetAccount(ctx, organizationID, line.AccountNumber)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: %w: account %s", apperrors.ErrValidation, ErrAccountInvalid, line.AccountNumber)
			}
			return nil, fmt.Errorf("failed to resolve account %s: %w", line.AccountNumber, err)
		}
		if !account.IsActive {
			return nil, fmt.Errorf("%w: %w: account %s is inactive", apperrors.ErrValidation, ErrAccountInvalid, line.AccountNumber)
		}
		resolved[i] = domain.JournalEntryLine{
			AccountNumber: line.AccountNumber,
			AccountName:   account.Name,
			Debit:         line.Debit,
			Credit:        line.Credit,
			Description:   line.Description,
			CostCenter:    line.CostCenter,
			TaxCode:       line.TaxCode,
		}
	}
	return resolved, nil
}

// loadEntry replays an entry's stream into its materialized state. Entries
// belonging to another organization are reported as not found.
func (s *journalEntryService) loadEntry(ctx context.Context, organizationID, entryID string) (*domain.JournalEntry, error) {
	streamID := domain.EntryStreamID(entryID)
	events, err := s.eventStore.LoadStream(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entry stream %s: %w", streamID, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: journal entry %s", apperrors.ErrNotFound, entryID)
	}
	entry, err := domain.ReplayJournalEntry(entryID, events)
	if err != nil {
		return nil, err
	}
	if entry.OrganizationID != organizationID {
		return nil, fmt.Errorf("%w: journal entry %s", apperrors.ErrNotFound, entryID)
	}
	return entry, nil
}

// appendAndApply appends one event at the entry's current version and folds
// it into the in-memory state.
func (s *journalEntryService) appendAndApply(ctx context.Context, entry *domain.JournalEntry, eventType domain.EventType, actor string, payload any) error {
	streamID := domain.EntryStreamID(entry.EntryID)
	ev, err := domain.NewEvent(streamID, entry.OrganizationID, entry.Version+1, eventType, actor, time.Now().UTC(), payload)
	if err != nil {
		return err
	}
	if err := s.eventStore.AppendEvents(ctx, streamID, entry.Version, []domain.Event{ev}); err != nil {
		return fmt.Errorf("failed to append %s: %w", eventType, err)
	}
	return entry.ApplyEntryEvent(ev)
}

// CreateEntry validates and creates a new draft journal entry. The entry ID
// is caller-supplied and single-use: reusing one is a conflict.
func (s *journalEntryService) CreateEntry(ctx context.Context, organizationID string, req dto.CreateEntryRequest, createdBy string) (*domain.JournalEntry, error) {
	return s.create(ctx, organizationID, req, createdBy, false, "")
}

func (s *journalEntryService) create(ctx context.Context, organizationID string, req dto.CreateEntryRequest, createdBy string, isReversing bool, reversedFromEntryID string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.EntryID == "" {
		return nil, fmt.Errorf("%w: entry ID is required", apperrors.ErrValidation)
	}
	if err := s.validateLines(req.Lines); err != nil {
		return nil, err
	}
	lines, err := s.resolveLines(ctx, organizationID, req.Lines)
	if err != nil {
		return nil, err
	}

	entryNumber, err := utils.GenerateEntryNumber(req.PostingDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInternal, err.Error())
	}
	effectiveDate := req.PostingDate
	if req.EffectiveDate != nil {
		effectiveDate = *req.EffectiveDate
	}
	var reference *domain.EntryReference
	if req.Reference != nil {
		reference = &domain.EntryReference{
			Number: req.Reference.Number,
			Type:   req.Reference.Type,
			ID:     req.Reference.ID,
		}
	}

	streamID := domain.EntryStreamID(req.EntryID)
	release := s.locker.Acquire(streamID)
	defer release()

	exists, err := s.eventStore.StreamExists(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("failed to check entry stream %s: %w", streamID, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: entry ID %s already used", apperrors.ErrConflict, req.EntryID)
	}

	payload := domain.EntryCreatedPayload{
		EntryNumber:         entryNumber,
		PostingDate:         domain.DateOnly(req.PostingDate),
		EffectiveDate:       domain.DateOnly(effectiveDate),
		Memo:                req.Memo,
		Lines:               lines,
		Reference:           reference,
		IsReversing:         isReversing,
		ReversedFromEntryID: reversedFromEntryID,
	}
	ev, err := domain.NewEvent(streamID, organizationID, 1, domain.EntryCreated, createdBy, time.Now().UTC(), payload)
	if err != nil {
		return nil, err
	}
	if err := s.eventStore.AppendEvents(ctx, streamID, 0, []domain.Event{ev}); err != nil {
		return nil, fmt.Errorf("failed to append %s: %w", domain.EntryCreated, err)
	}

	entry := &domain.JournalEntry{EntryID: req.EntryID}
	if err := entry.ApplyEntryEvent(ev); err != nil {
		return nil, err
	}

	logger.Info("Journal entry created",
		slog.String("entry_id", entry.EntryID),
		slog.String("entry_number", entry.EntryNumber),
		slog.String("organization_id", organizationID),
		slog.Bool("is_reversing", isReversing))

	if req.AutoPost {
		if err := s.post(ctx, entry, dto.PostEntryRequest{}, createdBy); err != nil {
			// The Created event is already durable; the entry stays Draft.
			return nil, err
		}
	}
	return entry, nil
}

// post appends the Posted event and emits the posting notification. The
// caller must hold the entry's stream lock. The period check and the event
// append are deliberately not atomic across entities; a period closing
// in between is an accepted race of the design.
func (s *journalEntryService) post(ctx context.Context, entry *domain.JournalEntry, req dto.PostEntryRequest, postedBy string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	if entry.Status != domain.EntryStatusDraft && entry.Status != domain.EntryStatusApproved {
		return fmt.Errorf("%w: cannot post entry in status %s", apperrors.ErrInvalidState, entry.Status)
	}

	period, err := s.periods.EnsurePostable(ctx, entry.OrganizationID, entry.PostingDate)
	if err != nil {
		return err
	}

	payload := domain.EntryPostedPayload{PeriodNumber: period.PeriodNumber, Notes: req.Notes}
	if err := s.appendAndApply(ctx, entry, domain.EntryPosted, postedBy, payload); err != nil {
		return err
	}

	notification := domain.PostingNotification{
		EntryID:        entry.EntryID,
		OrganizationID: entry.OrganizationID,
		EntryNumber:    entry.EntryNumber,
		PostingDate:    entry.PostingDate,
		TotalAmount:    entry.TotalAmount(),
		PostedBy:       postedBy,
	}
	if err := s.notifier.NotifyPosted(ctx, notification); err != nil {
		// Posting is already durable; consumers reconcile from the event log.
		logger.Warn("Failed to publish posting notification",
			slog.String("entry_id", entry.EntryID),
			slog.String("error", err.Error()))
	}

	logger.Info("Journal entry posted",
		slog.String("entry_id", entry.EntryID),
		slog.String("entry_number", entry.EntryNumber),
		slog.Int("period", period.PeriodNumber))
	return nil
}

// PostEntry posts a Draft or Approved entry into the period covering its
// posting date.
func (s *journalEntryService) PostEntry(ctx context.Context, organizationID, entryID string, req dto.PostEntryRequest, postedBy string) (*domain.JournalEntry, error) {
	release := s.locker.Acquire(domain.EntryStreamID(entryID))
	defer release()

	entry, err := s.loadEntry(ctx, organizationID, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.post(ctx, entry, req, postedBy); err != nil {
		return nil, err
	}
	return entry, nil
}

// SubmitEntry moves a Draft entry to PendingApproval.
func (s *journalEntryService) SubmitEntry(ctx context.Context, organizationID, entryID string, req dto.SubmitEntryRequest, submittedBy string) (*domain.JournalEntry, error) {
	release := s.locker.Acquire(domain.EntryStreamID(entryID))
	defer release()

	entry, err := s.loadEntry(ctx, organizationID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != domain.EntryStatusDraft {
		return nil, fmt.Errorf("%w: cannot submit entry in status %s", apperrors.ErrInvalidState, entry.Status)
	}
	if err := s.appendAndApply(ctx, entry, domain.EntrySubmitted, submittedBy, domain.EntrySubmittedPayload{Notes: req.Notes}); err != nil {
		return nil, err
	}
	return entry, nil
}

// ApproveEntry approves a Draft or PendingApproval entry.
func (s *journalEntryService) ApproveEntry(ctx context.Context, organizationID, entryID string, req dto.ApproveEntryRequest, approvedBy string) (*domain.JournalEntry, error) {
	release := s.locker.Acquire(domain.EntryStreamID(entryID))
	defer release()

	entry, err := s.loadEntry(ctx, organizationID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != domain.EntryStatusDraft && entry.Status != domain.EntryStatusPendingApproval {
		return nil, fmt.Errorf("%w: cannot approve entry in status %s", apperrors.ErrInvalidState, entry.Status)
	}
	if err := s.appendAndApply(ctx, entry, domain.EntryApproved, approvedBy, domain.EntryApprovedPayload{Notes: req.Notes}); err != nil {
		return nil, err
	}
	return entry, nil
}

// RejectEntry rejects a Draft or PendingApproval entry. Posted money is
// reversed, never rejected.
func (s *journalEntryService) RejectEntry(ctx context.Context, organizationID, entryID string, req dto.RejectEntryRequest, rejectedBy string) (*domain.JournalEntry, error) {
	release := s.locker.Acquire(domain.EntryStreamID(entryID))
	defer release()

	entry, err := s.loadEntry(ctx, organizationID, entryID)
	if err != nil {
		return nil, err
	}
	switch entry.Status {
	case domain.EntryStatusDraft, domain.EntryStatusPendingApproval:
		// rejectable
	case domain.EntryStatusPosted:
		return nil, fmt.Errorf("%w: cannot reject a posted entry, reverse it instead", apperrors.ErrInvalidState)
	default:
		return nil, fmt.Errorf("%w: cannot reject entry in status %s", apperrors.ErrInvalidState, entry.Status)
	}
	if err := s.appendAndApply(ctx, entry, domain.EntryRejected, rejectedBy, domain.EntryRejectedPayload{Reason: req.Reason}); err != nil {
		return nil, err
	}
	return entry, nil
}

// VoidEntry voids an entry in any pre-post status. Posted entries must be
// reversed instead.
func (s *journalEntryService) VoidEntry(ctx context.Context, organizationID, entryID string, req dto.VoidEntryRequest, voidedBy string) (*domain.JournalEntry, error) {
	release := s.locker.Acquire(domain.EntryStreamID(entryID))
	defer release()

	entry, err := s.loadEntry(ctx, organizationID, entryID)
	if err != nil {
		return nil, err
	}
	switch entry.Status {
	case domain.EntryStatusDraft, domain.EntryStatusPendingApproval, domain.EntryStatusApproved:
		// voidable
	case domain.EntryStatusPosted:
		return nil, fmt.Errorf("%w: cannot void a posted entry, reverse it instead", apperrors.ErrInvalidState)
	default:
		return nil, fmt.Errorf("%w: cannot void entry in status %s", apperrors.ErrInvalidState, entry.Status)
	}
	if err := s.appendAndApply(ctx, entry, domain.EntryVoided, voidedBy, domain.EntryVoidedPayload{Reason: req.Reason}); err != nil {
		return nil, err
	}
	return entry, nil
}

// ReverseEntry creates and posts a new entry whose lines have debit and
// credit swapped relative to the original, then links the original to it.
// This is the only command that creates a second entity instance.
func (s *journalEntryService) ReverseEntry(ctx context.Context, organizationID, entryID string, req dto.ReverseEntryRequest, reversedBy string) (*domain.JournalEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	release := s.locker.Acquire(domain.EntryStreamID(entryID))
	defer release()

	original, err := s.loadEntry(ctx, organizationID, entryID)
	if err != nil {
		return nil, err
	}
	if original.ReversedByEntryID != "" || original.Status == domain.EntryStatusReversed {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrConflict, ErrAlreadyReversed)
	}
	if original.Status != domain.EntryStatusPosted {
		return nil, fmt.Errorf("%w: only posted entries can be reversed, status is %s", apperrors.ErrInvalidState, original.Status)
	}

	// Check the target period up front so a closed reversal date fails before
	// the reversing entry is created.
	if _, err := s.periods.EnsurePostable(ctx, organizationID, req.ReversalDate); err != nil {
		return nil, err
	}

	memo := fmt.Sprintf("Reversal of %s", original.EntryNumber)
	if req.Reason != "" {
		memo = fmt.Sprintf("%s: %s", memo, req.Reason)
	}
	reversalReq := dto.CreateEntryRequest{
		EntryID:     uuid.NewString(),
		PostingDate: req.ReversalDate,
		Memo:        memo,
		Lines:       swapLines(original.Lines),
		AutoPost:    true,
	}
	reversal, err := s.create(ctx, organizationID, reversalReq, reversedBy, true, original.EntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to create reversing entry for %s: %w", original.EntryNumber, err)
	}

	payload := domain.EntryReversedPayload{
		ReversalEntryID: reversal.EntryID,
		ReversalDate:    domain.DateOnly(req.ReversalDate),
		Reason:          req.Reason,
	}
	if err := s.appendAndApply(ctx, original, domain.EntryReversed, reversedBy, payload); err != nil {
		logger.Error("Reversing entry posted but original could not be linked",
			slog.String("entry_id", original.EntryID),
			slog.String("reversal_entry_id", reversal.EntryID),
			slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("Journal entry reversed",
		slog.String("entry_id", original.EntryID),
		slog.String("reversal_entry_id", reversal.EntryID))
	return reversal, nil
}

// swapLines mirrors an entry's lines with debit and credit exchanged.
func swapLines(lines []domain.JournalEntryLine) []dto.CreateEntryLineRequest {
	swapped := make([]dto.CreateEntryLineRequest, len(lines))
	for i, line := range lines {
		swapped[i] = dto.CreateEntryLineRequest{
			AccountNumber: line.AccountNumber,
			Debit:         line.Credit,
			Credit:        line.Debit,
			Description:   line.Description,
			CostCenter:    line.CostCenter,
			TaxCode:       line.TaxCode,
		}
	}
	return swapped
}

// GetEntry retrieves the current snapshot of an entry, including lines.
func (s *journalEntryService) GetEntry(ctx context.Context, organizationID, entryID string) (*domain.JournalEntry, error) {
	return s.loadEntry(ctx, organizationID, entryID)
}

// EntryExists reports whether an entry exists for this organization.
func (s *journalEntryService) EntryExists(ctx context.Context, organizationID, entryID string) (bool, error) {
	_, err := s.loadEntry(ctx, organizationID, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetEntryStatus returns the current status of an entry.
func (s *journalEntryService) GetEntryStatus(ctx context.Context, organizationID, entryID string) (domain.EntryStatus, error) {
	entry, err := s.loadEntry(ctx, organizationID, entryID)
	if err != nil {
		return "", err
	}
	return entry.Status, nil
}

// ListEntries retrieves an organization's entries, optionally filtered by
// status, ordered by creation time.
func (s *journalEntryService) ListEntries(ctx context.Context, organizationID string, params dto.ListEntriesParams) ([]domain.JournalEntry, error) {
	streamIDs, err := s.eventStore.ListStreamIDs(ctx, organizationID, "journal:")
	if err != nil {
		return nil, fmt.Errorf("failed to list entry streams: %w", err)
	}

	entries := make([]domain.JournalEntry, 0, len(streamIDs))
	for _, streamID := range streamIDs {
		events, err := s.eventStore.LoadStream(ctx, streamID)
		if err != nil {
			return nil, fmt.Errorf("failed to load entry stream %s: %w", streamID, err)
		}
		if len(events) == 0 {
			continue
		}
		entry, err := domain.ReplayJournalEntry(streamID[len("journal:"):], events)
		if err != nil {
			return nil, err
		}
		if params.Status != "" && entry.Status != domain.EntryStatus(params.Status) {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}
