package notify

import (
	"context"
	"sync"
)

// MemoryChannel is an in-process Channel used by unit tests and single-node
// deployments without Redis. Publish fans out synchronously to every matching
// subscriber; a subscriber with a full buffer drops the event, which is
// consistent with the at-least-once (not exactly-once, not lossless-buffering)
// contract consumers must already tolerate.
type MemoryChannel struct {
	mu   sync.Mutex
	subs []*memorySubscription
}

func NewMemoryChannel() *MemoryChannel { return &MemoryChannel{} }

func (c *MemoryChannel) Publish(_ context.Context, e Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		if !sub.wants(e.Table) {
			continue
		}
		select {
		case sub.events <- e:
		default:
		}
	}
	return nil
}

func (c *MemoryChannel) Subscribe(_ context.Context, tables ...string) (Subscription, error) {
	sub := &memorySubscription{
		ch:     c,
		tables: make(map[string]struct{}, len(tables)),
		events: make(chan Event, 64),
	}
	for _, t := range tables {
		sub.tables[t] = struct{}{}
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub, nil
}

type memorySubscription struct {
	ch     *MemoryChannel
	tables map[string]struct{}
	events chan Event
	once   sync.Once
}

func (s *memorySubscription) wants(table string) bool {
	_, ok := s.tables[table]
	return ok
}

func (s *memorySubscription) Events() <-chan Event { return s.events }

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		s.ch.mu.Lock()
		for i, sub := range s.ch.subs {
			if sub == s {
				s.ch.subs = append(s.ch.subs[:i], s.ch.subs[i+1:]...)
				break
			}
		}
		s.ch.mu.Unlock()
		close(s.events)
	})
	return nil
}
