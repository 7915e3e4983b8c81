package services

import (
	"context"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
)

// AccountDirectory is the read-only collaborator contract the ledger core
// consumes to validate accounts at entry creation. It never mutates.
type AccountDirectory interface {
	// ValidateAccount reports whether the account exists and is active.
	ValidateAccount(ctx context.Context, organizationID, accountNumber string) (bool, error)

	// GetAccount returns the account metadata, or apperrors.ErrNotFound.
	GetAccount(ctx context.Context, organizationID, accountNumber string) (*domain.Account, error)
}
