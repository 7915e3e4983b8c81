package domain

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// NormalBalance is the side on which an account naturally carries its balance.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// Account is the read-only metadata the ledger core needs about an account in
// the chart of accounts. The account directory owns the full record; entry
// creation only checks existence/activity and snapshots the name per line.
type Account struct {
	OrganizationID string        `json:"organizationID"`
	AccountNumber  string        `json:"accountNumber"`
	Name           string        `json:"name"`
	AccountType    AccountType   `json:"accountType"`
	NormalBalance  NormalBalance `json:"normalBalance"`
	IsActive       bool          `json:"isActive"`
}
