package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kelly-eugenia/weather-forecast/internal/common"
	"github.com/kelly-eugenia/weather-forecast/internal/history"
)

var (
	// ErrNoHistory is returned when no feature row exists strictly before a date.
	ErrNoHistory = errors.New("no historical data before date")
)

// MemoryStore is a concurrency-safe, read-mostly snapshot of derived feature
// rows sorted by date.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []history.FeatureRow
}

// NewMemoryStore creates a store holding rows. Rows are copied and sorted.
func NewMemoryStore(rows []history.FeatureRow) *MemoryStore {
	s := &MemoryStore{}
	s.Replace(rows)
	return s
}

// Replace swaps in a new snapshot. Readers holding the previous one are
// unaffected.
func (s *MemoryStore) Replace(rows []history.FeatureRow) {
	snapshot := make([]history.FeatureRow, len(rows))
	copy(snapshot, rows)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].Date.Before(snapshot[j].Date)
	})

	s.mu.Lock()
	s.rows = snapshot
	s.mu.Unlock()
}

// LatestBefore returns the most recent row dated strictly before date.
func (s *MemoryStore) LatestBefore(date time.Time) (history.FeatureRow, error) {
	date = common.Day(date)

	s.mu.RLock()
	defer s.mu.RUnlock()

	// First index whose date is on or after the target.
	i := sort.Search(len(s.rows), func(i int) bool {
		return !s.rows[i].Date.Before(date)
	})
	if i == 0 {
		return history.FeatureRow{}, fmt.Errorf("%w %s", ErrNoHistory, date.Format(common.DateLayout))
	}
	return s.rows[i-1], nil
}

// Rows returns a copy of the snapshot in date order.
func (s *MemoryStore) Rows() []history.FeatureRow {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]history.FeatureRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Len returns the number of rows held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Span returns the first and last row dates. ok is false when the store is empty.
func (s *MemoryStore) Span() (first, last time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.rows[0].Date, s.rows[len(s.rows)-1].Date, true
}
