package memory

import (
	"context"
	"sync"

	"lingua-quiz-service/internal/domain"
)

// HistoryStore keeps quiz completion records in memory, newest first.
type HistoryStore struct {
	mu      sync.RWMutex
	records map[string][]domain.HistoryRecord
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{records: make(map[string][]domain.HistoryRecord)}
}

func (s *HistoryStore) Insert(_ context.Context, record domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = append([]domain.HistoryRecord{record}, s.records[record.UserID]...)
	return nil
}

func (s *HistoryStore) List(_ context.Context, userID string, limit int) ([]domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.records[userID]
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	out := make([]domain.HistoryRecord, len(records))
	copy(out, records)
	return out, nil
}

func (s *HistoryStore) Aggregate(_ context.Context, userID string) (domain.HistoryStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := domain.HistoryStats{}
	for _, record := range s.records[userID] {
		stats.Quizzes++
		stats.Answered += record.Total
		stats.Correct += record.Score
	}
	if stats.Answered > 0 {
		stats.Accuracy = float64(stats.Correct) / float64(stats.Answered) * 100
	}
	return stats, nil
}
