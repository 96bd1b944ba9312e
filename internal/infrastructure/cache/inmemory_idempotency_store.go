package cache

import (
	"context"
	"sync"
	"time"

	"github.com/SebastianDabkowski/mercato-2-sub001/internal/domain/shared"
)

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

// InMemoryIdempotencyStore remembers processed event IDs in a map so
// redelivered order and shipment events are dropped. It only protects a
// single process; multi-instance deployments use the Redis store.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]marker
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// marker records when a processed-event entry stops being valid.
type marker struct {
	expiresAt time.Time
}

// NewInMemoryIdempotencyStore builds a store and starts its background
// sweep of expired markers.
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries:  make(map[string]marker),
		stopChan: make(chan struct{}),
	}
	store.wg.Add(1)
	go store.cleanupLoop()
	return store
}

// MarkProcessed records eventID for ttl. It reports true when this call
// was the first to record the event, false on a duplicate.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, exists := s.entries[eventID]; exists && time.Now().Before(m.expiresAt) {
		return false, nil
	}
	s.entries[eventID] = marker{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// IsProcessed reports whether eventID carries an unexpired marker.
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.entries[eventID]
	return exists && time.Now().Before(m.expiresAt), nil
}

// Close stops the sweep goroutine. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for eventID, m := range s.entries {
		if now.After(m.expiresAt) {
			delete(s.entries, eventID)
		}
	}
}

// Size reports the number of live markers. Used by tests and health
// diagnostics.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
