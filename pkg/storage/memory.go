package storage

import (
	"context"
	"maps"
	"sync"
	"time"
)

type memoryEntry struct {
	snapshot Snapshot
	storedAt time.Time
}

// MemoryStore keeps snapshots in process memory and is safe for
// concurrent use. Snapshots are lost on restart; RedisStore shares them
// between processes.
//
// A store created with NewMemoryStoreWithTTL hides entries older than the
// TTL and sweeps them from a background goroutine until Stop.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore returns a store without expiry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// NewMemoryStoreWithTTL returns a store whose entries expire ttl after
// their Put. Expired entries are swept every cleanupInterval, one minute
// when <= 0. It panics if ttl is not positive.
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration) *MemoryStore {
	if ttl <= 0 {
		panic("storage: memory store TTL must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore()
	s.ttl = ttl
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.sweepEvery(ctx, cleanupInterval)
	return s
}

// Close stops the sweeper. It implements io.Closer.
func (s *MemoryStore) Close() error {
	s.Stop()
	return nil
}

// Stop ends the sweeper and waits for it to exit. It is safe to call more
// than once and on a store without TTL.
func (s *MemoryStore) Stop() {
	if s.cancel == nil {
		return
	}
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *MemoryStore) sweepEvery(ctx context.Context, interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.DeleteFunc(s.entries, func(_ string, e memoryEntry) bool {
		return s.expired(e, now)
	})
}

func (s *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.storedAt) > s.ttl
}

// Put replaces the series' snapshot.
func (s *MemoryStore) Put(ctx context.Context, snapshot Snapshot) error {
	if err := ValidateSeriesName(snapshot.Series); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[snapshot.Series] = memoryEntry{snapshot: snapshot, storedAt: s.now()}
	s.mu.Unlock()
	return nil
}

// GetLatest returns the series' snapshot. found is false when none is
// stored or it has expired.
func (s *MemoryStore) GetLatest(ctx context.Context, series string) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	s.mu.RLock()
	e, ok := s.entries[series]
	s.mu.RUnlock()

	if !ok || s.expired(e, s.now()) {
		return Snapshot{}, false, nil
	}
	return e.snapshot, true, nil
}
