package services

import (
	"context"
	"sort"
	"sync"

	"livescore-service/models"
	"livescore-service/pkg/common"
)

// MemoryMatchStore MatchStore 的内存实现, 用于本地调试和测试
type MemoryMatchStore struct {
	mu      sync.RWMutex
	matches map[int64]*models.Match
}

// NewMemoryMatchStore 创建内存存储
func NewMemoryMatchStore() *MemoryMatchStore {
	return &MemoryMatchStore{
		matches: make(map[int64]*models.Match),
	}
}

func (s *MemoryMatchStore) GetAll(ctx context.Context) ([]*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryMatchStore) Get(ctx context.Context, id int64) (*models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m.Clone(), nil
}

func (s *MemoryMatchStore) Upsert(ctx context.Context, m *models.Match) error {
	if err := ctx.Err(); err != nil {
		return common.StorageError("upsert match", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.matches[m.ID] = m.Clone()
	return nil
}

func (s *MemoryMatchStore) RecentEvents(ctx context.Context, id int64, limit int) ([]models.MatchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m.RecentEvents(limit), nil
}

func (s *MemoryMatchStore) DeleteFinished(ctx context.Context, minuteThreshold int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, m := range s.matches {
		if m.Status == models.MatchStatusFullTime && m.Minute > minuteThreshold {
			delete(s.matches, id)
			deleted++
		}
	}
	return deleted, nil
}
