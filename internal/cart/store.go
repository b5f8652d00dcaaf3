package cart

import (
	"log"
	"sync"

	"gitlab.ozon.dev/pupkingeorgij/shopsync/internal/metrics"
)

// Store holds the most recently applied cart snapshot. Every Replace fully
// discards the previous state (last-write-wins), matching the push channel's
// full-replacement contract.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
	onChange func(Snapshot)
}

// NewStore returns an empty store. onChange, if non-nil, fires after every
// Replace and Clear with a copy of the new state.
func NewStore(onChange func(Snapshot)) *Store {
	return &Store{onChange: onChange}
}

func (s *Store) Replace(snapshot Snapshot) {
	snapshotCopy := copySnapshot(snapshot)

	s.mu.Lock()
	s.snapshot = snapshotCopy
	s.mu.Unlock()

	metrics.CartItemsGauge.Set(float64(len(snapshotCopy.Items)))
	log.Printf("Cart: applied snapshot with %d items (badge %d)", len(snapshotCopy.Items), snapshotCopy.BadgeCount())

	if s.onChange != nil {
		s.onChange(copySnapshot(snapshotCopy))
	}
}

func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(s.snapshot)
}

// Clear discards the cached copy, as on logout or channel teardown.
func (s *Store) Clear() {
	s.mu.Lock()
	s.snapshot = Snapshot{}
	s.mu.Unlock()

	metrics.CartItemsGauge.Set(0)

	if s.onChange != nil {
		s.onChange(Snapshot{})
	}
}

func copySnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Items == nil {
		return Snapshot{}
	}
	items := make([]Item, len(snapshot.Items))
	copy(items, snapshot.Items)
	return Snapshot{Items: items}
}
