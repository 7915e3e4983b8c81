package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PostingNotification is the record published once per successful posting,
// consumed by reporting and reconciliation. Delivery is at-least-once with no
// ordering guarantee.
type PostingNotification struct {
	EntryID        string          `json:"entryID"`
	OrganizationID string          `json:"organizationID"`
	EntryNumber    string          `json:"entryNumber"`
	PostingDate    time.Time       `json:"postingDate"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PostedBy       string          `json:"postedBy"`
}
