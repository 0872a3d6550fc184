package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

var now = time.Now

// Store keeps locations in process memory. Used by default and in tests.
type Store struct {
	mu   sync.RWMutex
	rows map[string]types.Location
}

func New() *Store {
	return &Store{rows: make(map[string]types.Location)}
}

func (s *Store) Init(map[string]string) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Upsert(_ context.Context, loc types.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.rows[loc.BusRef]; ok {
		loc = prev.Merge(loc)
	}
	loc.UpdatedAt = now()
	s.rows[loc.BusRef] = loc
	return nil
}

func (s *Store) UpdateStatus(_ context.Context, busRef string, status live.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loc, ok := s.rows[busRef]
	if !ok {
		return types.ErrLocationNotFound
	}
	loc.Status = status
	loc.CapturedAt = at
	loc.UpdatedAt = now()
	s.rows[busRef] = loc
	return nil
}

func (s *Store) Get(_ context.Context, busRef string) (types.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.rows[busRef]
	if !ok {
		return types.Location{}, types.ErrLocationNotFound
	}
	return loc, nil
}

func (s *Store) List(_ context.Context) ([]types.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Location, 0, len(s.rows))
	for _, loc := range s.rows {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BusRef < out[j].BusRef })
	return out, nil
}
