package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsledger/backoffice_ledger/internal/apperrors"
	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
)

// PgxAccountDirectoryRepository reads the chart of accounts maintained by the
// account service. This adapter is strictly read-only.
type PgxAccountDirectoryRepository struct {
	pool *pgxpool.Pool
}

// NewPgxAccountDirectoryRepository creates a new account directory backed by Postgres.
func NewPgxAccountDirectoryRepository(pool *pgxpool.Pool) portssvc.AccountDirectory {
	return &PgxAccountDirectoryRepository{pool: pool}
}

// GetAccount returns the account metadata, or apperrors.ErrNotFound.
func (r *PgxAccountDirectoryRepository) GetAccount(ctx context.Context, organizationID, accountNumber string) (*domain.Account, error) {
	query := `
		SELECT organization_id, account_number, name, account_type, normal_balance, is_active
		FROM accounts
		WHERE organization_id = $1 AND account_number = $2;
	`
	var account domain.Account
	err := r.pool.QueryRow(ctx, query, organizationID, accountNumber).Scan(
		&account.OrganizationID,
		&account.AccountNumber,
		&account.Name,
		&account.AccountType,
		&account.NormalBalance,
		&account.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountNumber)
		}
		return nil, fmt.Errorf("failed to find account %s: %w", accountNumber, err)
	}
	return &account, nil
}

// ValidateAccount reports whether the account exists and is active.
func (r *PgxAccountDirectoryRepository) ValidateAccount(ctx context.Context, organizationID, accountNumber string) (bool, error) {
	account, err := r.GetAccount(ctx, organizationID, accountNumber)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.IsActive, nil
}
