package issue

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps issue links in nested maps.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[int64]map[string]struct{}
}

func NewMemory() *MemoryStore {
	return &MemoryStore{links: make(map[int64]map[string]struct{})}
}

func (s *MemoryStore) Add(_ context.Context, mismatchID int64, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.links[mismatchID]
	if !ok {
		set = make(map[string]struct{})
		s.links[mismatchID] = set
	}
	set[issueID] = struct{}{}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, mismatchID int64, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.links[mismatchID]; ok {
		delete(set, issueID)
		if len(set) == 0 {
			delete(s.links, mismatchID)
		}
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, mismatchID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.links[mismatchID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
