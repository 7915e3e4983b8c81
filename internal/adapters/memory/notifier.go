package memory

import (
	"context"
	"sync"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
)

// PostingNotifier records posting notifications in memory. Used in tests and
// when no message broker is configured.
type PostingNotifier struct {
	mu            sync.Mutex
	notifications []domain.PostingNotification
}

// NewPostingNotifier creates an empty in-memory notifier.
func NewPostingNotifier() *PostingNotifier {
	return &PostingNotifier{}
}

var _ portssvc.PostingNotifier = (*PostingNotifier)(nil)

// NotifyPosted records the notification.
func (n *PostingNotifier) NotifyPosted(_ context.Context, notification domain.PostingNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return nil
}

// Notifications returns a copy of everything recorded so far.
func (n *PostingNotifier) Notifications() []domain.PostingNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.PostingNotification, len(n.notifications))
	copy(out, n.notifications)
	return out
}
