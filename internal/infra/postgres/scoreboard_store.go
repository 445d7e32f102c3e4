package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"live-quiz-engine/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ScoreboardStore persists final scoreboards with participant rows as JSONB.
type ScoreboardStore struct {
	pool *pgxpool.Pool
}

func NewScoreboardStore(pool *pgxpool.Pool) *ScoreboardStore {
	return &ScoreboardStore{pool: pool}
}

// CreateScoreboard inserts the record; a record with the same ID is left untouched.
func (s *ScoreboardStore) CreateScoreboard(ctx context.Context, record domain.ScoreboardRecord) error {
	scores, err := json.Marshal(record.ParticipantScores)
	if err != nil {
		return fmt.Errorf("marshal participant scores: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO scoreboards (id, quiz_id, end_reason, ended_at, participant_scores)
		 VALUES ($1, $2, $3, $4, $5::jsonb)
		 ON CONFLICT (id) DO NOTHING`,
		record.ID, record.QuizID, record.EndReason, record.EndedAt, string(scores))
	if err != nil {
		return fmt.Errorf("insert scoreboard: %w", err)
	}
	return nil
}

// LatestScoreboard returns the most recently ended session's scoreboard for quizID.
func (s *ScoreboardStore) LatestScoreboard(ctx context.Context, quizID string) (domain.ScoreboardRecord, error) {
	var (
		record domain.ScoreboardRecord
		raw    []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, quiz_id, end_reason, ended_at, participant_scores
		 FROM scoreboards WHERE quiz_id=$1
		 ORDER BY ended_at DESC LIMIT 1`, quizID).
		Scan(&record.ID, &record.QuizID, &record.EndReason, &record.EndedAt, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScoreboardRecord{}, domain.ErrScoreboardNotFound
	}
	if err != nil {
		return domain.ScoreboardRecord{}, fmt.Errorf("load scoreboard: %w", err)
	}
	if err := json.Unmarshal(raw, &record.ParticipantScores); err != nil {
		return domain.ScoreboardRecord{}, fmt.Errorf("unmarshal participant scores: %w", err)
	}
	return record, nil
}
