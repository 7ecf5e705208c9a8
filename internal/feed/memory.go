package feed

import (
	"context"
	"sync"
)

// MemoryFeed is an in-process Feed used when Redis is disabled and in tests.
// Events only reach subscribers in the same process.
type MemoryFeed struct {
	mu     sync.Mutex
	subs   map[*memorySub]struct{}
	closed bool
}

type memorySub struct {
	collections map[string]struct{}
	events      chan Event
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[*memorySub]struct{})}
}

func (f *MemoryFeed) Publish(ctx context.Context, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFeedUnavailable
	}
	for sub := range f.subs {
		if _, ok := sub.collections[collection]; !ok {
			continue
		}
		select {
		case sub.events <- Event{Collection: collection}:
		default:
			// Slow subscriber, drop rather than block the writer. A missed
			// event only delays a cache refresh until the next change.
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context, collections ...string) (*Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrFeedUnavailable
	}

	sub := &memorySub{
		collections: make(map[string]struct{}, len(collections)),
		events:      make(chan Event, 16),
	}
	for _, c := range collections {
		sub.collections[c] = struct{}{}
	}
	f.subs[sub] = struct{}{}

	errs := make(chan error, 1)
	return &Subscription{
		Events: sub.events,
		Errs:   errs,
		cancel: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[sub]; ok {
				delete(f.subs, sub)
				close(sub.events)
			}
		},
	}, nil
}

func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for sub := range f.subs {
		close(sub.events)
	}
	f.subs = make(map[*memorySub]struct{})
	return nil
}
