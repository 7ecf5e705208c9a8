// Package feed delivers change notifications for database collections so
// in-process caches can refresh without polling.
package feed

import (
	"context"
	"errors"
)

// ErrFeedUnavailable is returned when the notification transport cannot be
// reached. Consumers fall back to reading directly from the database.
var ErrFeedUnavailable = errors.New("change feed unavailable")

// Event announces that rows of a collection changed. The payload carries no
// row identity; consumers reload the whole collection.
type Event struct {
	Collection string `json:"collection"`
}

// Subscription delivers events for the collections it was opened with.
// Errs receives transport failures; after an error the subscription may stop
// delivering events and should be reopened.
type Subscription struct {
	Events <-chan Event
	Errs   <-chan error

	cancel func()
}

// Close stops delivery and releases the underlying transport resources.
func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Feed publishes and subscribes to collection change events.
type Feed interface {
	Publish(ctx context.Context, collection string) error
	Subscribe(ctx context.Context, collections ...string) (*Subscription, error)
	Close() error
}
