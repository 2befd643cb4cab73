package ignore

import (
	"context"
	"sync"

	"spotcheck/internal/spotcheck/models"
)

// MemoryStore keeps overlay entries in a map keyed by lineage.
type MemoryStore struct {
	mu     sync.RWMutex
	levels map[models.Lineage]models.IgnoreLevel
}

func NewMemory() *MemoryStore {
	return &MemoryStore{levels: make(map[models.Lineage]models.IgnoreLevel)}
}

func (s *MemoryStore) Set(_ context.Context, lineage models.Lineage, level models.IgnoreLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if level == "" || level == models.NotIgnored {
		delete(s.levels, lineage)
		return nil
	}
	s.levels[lineage] = level
	return nil
}

func (s *MemoryStore) Get(_ context.Context, lineage models.Lineage) (models.IgnoreLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if level, ok := s.levels[lineage]; ok {
		return level, nil
	}
	return models.NotIgnored, nil
}

// Len reports the number of overlay entries; test helper.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.levels)
}
