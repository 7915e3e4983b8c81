package services

import (
	"context"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
)

// PostingNotifier publishes posting notifications to external consumers
// (reporting, reconciliation). Delivery is at-least-once; a failed publish is
// logged by the caller and never rolls back the posting itself.
type PostingNotifier interface {
	NotifyPosted(ctx context.Context, notification domain.PostingNotification) error
}
