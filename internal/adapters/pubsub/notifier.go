package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	gpubsub "cloud.google.com/go/pubsub"

	"github.com/opsledger/backoffice_ledger/internal/core/domain"
	portssvc "github.com/opsledger/backoffice_ledger/internal/core/ports/services"
)

// PostingNotifier publishes posting notifications to a Google Pub/Sub topic.
// Delivery is best-effort from the caller's point of view: posting has already
// committed to the event log by the time this runs, and downstream consumers
// reconcile from the log.
type PostingNotifier struct {
	topic *gpubsub.Topic
}

// NewPostingNotifier connects to the project and prepares the topic handle.
// The topic must already exist.
func NewPostingNotifier(ctx context.Context, projectID, topicName string) (*PostingNotifier, error) {
	client, err := gpubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client for project %s: %w", projectID, err)
	}
	topic := client.Topic(topicName)
	ok, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check topic %s: %w", topicName, err)
	}
	if !ok {
		return nil, fmt.Errorf("pubsub topic %s does not exist in project %s", topicName, projectID)
	}
	return &PostingNotifier{topic: topic}, nil
}

var _ portssvc.PostingNotifier = (*PostingNotifier)(nil)

// NotifyPosted publishes the notification as JSON and waits for the server
// to assign a message ID.
func (n *PostingNotifier) NotifyPosted(ctx context.Context, notification domain.PostingNotification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal posting notification for entry %s: %w", notification.EntryID, err)
	}
	result := n.topic.Publish(ctx, &gpubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"organizationID": notification.OrganizationID,
			"entryID":        notification.EntryID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("failed to publish posting notification for entry %s: %w", notification.EntryID, err)
	}
	return nil
}

// Stop flushes pending publishes. Call on shutdown.
func (n *PostingNotifier) Stop() {
	n.topic.Stop()
}
