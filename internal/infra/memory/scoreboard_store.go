package memory

import (
	"context"
	"sync"

	"live-quiz-engine/internal/domain"
)

// ScoreboardStore keeps finished scoreboards in memory (useful for tests/demos).
type ScoreboardStore struct {
	mu      sync.RWMutex
	byQuiz  map[string][]domain.ScoreboardRecord
	seenIDs map[string]struct{}
}

func NewScoreboardStore() *ScoreboardStore {
	return &ScoreboardStore{
		byQuiz:  make(map[string][]domain.ScoreboardRecord),
		seenIDs: make(map[string]struct{}),
	}
}

// CreateScoreboard appends the record unless a record with the same ID was already stored.
func (s *ScoreboardStore) CreateScoreboard(_ context.Context, record domain.ScoreboardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seenIDs[record.ID]; ok {
		return nil
	}
	s.seenIDs[record.ID] = struct{}{}
	s.byQuiz[record.QuizID] = append(s.byQuiz[record.QuizID], record)
	return nil
}

func (s *ScoreboardStore) LatestScoreboard(_ context.Context, quizID string) (domain.ScoreboardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.byQuiz[quizID]
	if len(records) == 0 {
		return domain.ScoreboardRecord{}, domain.ErrScoreboardNotFound
	}
	return records[len(records)-1], nil
}

// Scoreboards returns every record stored for quizID, oldest first.
func (s *ScoreboardStore) Scoreboards(quizID string) []domain.ScoreboardRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ScoreboardRecord, len(s.byQuiz[quizID]))
	copy(out, s.byQuiz[quizID])
	return out
}
