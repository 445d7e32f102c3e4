package app_test

import (
	"fmt"
	"testing"

	"live-quiz-engine/internal/app"
	"live-quiz-engine/internal/domain"
)

func TestComputeLeaderboardOrdersByScore(t *testing.T) {
	participants := map[string]*domain.Participant{
		"u1": {UserID: "u1", Username: "Alice", Score: 10, JoinSeq: 1},
		"u2": {UserID: "u2", Username: "Bob", Score: 25, JoinSeq: 2},
		"u3": {UserID: "u3", Username: "Cara", Score: 0, JoinSeq: 3},
	}

	board := app.ComputeLeaderboard(participants)
	want := []string{"u2", "u1", "u3"}
	for i, id := range want {
		if board[i].UserID != id || board[i].Rank != i+1 {
			t.Fatalf("position %d: expected %s rank %d, got %+v", i, id, i+1, board[i])
		}
	}
}

func TestComputeLeaderboardRanksAreContiguous(t *testing.T) {
	participants := make(map[string]*domain.Participant)
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("u%02d", i)
		participants[id] = &domain.Participant{UserID: id, Score: float64(i % 7), JoinSeq: uint64(i + 1)}
	}

	board := app.ComputeLeaderboard(participants)
	if len(board) != len(participants) {
		t.Fatalf("expected %d entries, got %d", len(participants), len(board))
	}
	for i, e := range board {
		if e.Rank != i+1 {
			t.Fatalf("entry %d has rank %d", i, e.Rank)
		}
		if i > 0 && board[i-1].Score < e.Score {
			t.Fatalf("scores not descending at %d: %v < %v", i, board[i-1].Score, e.Score)
		}
	}
}

func TestComputeLeaderboardTieBreaks(t *testing.T) {
	participants := map[string]*domain.Participant{
		"slow":   {UserID: "slow", Score: 10, JoinSeq: 1, TimedAnswers: 2, ResponseTimeTotal: 8000},
		"fast":   {UserID: "fast", Score: 10, JoinSeq: 4, TimedAnswers: 2, ResponseTimeTotal: 2000},
		"late":   {UserID: "late", Score: 10, JoinSeq: 3},
		"early":  {UserID: "early", Score: 10, JoinSeq: 2},
		"winner": {UserID: "winner", Score: 11, JoinSeq: 5},
	}

	board := app.ComputeLeaderboard(participants)
	want := []string{"winner", "fast", "slow", "early", "late"}
	for i, id := range want {
		if board[i].UserID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, board[i].UserID)
		}
	}
	if board[1].AverageResponseTime == nil || *board[1].AverageResponseTime != 1000 {
		t.Fatalf("expected average 1000 for fast, got %v", board[1].AverageResponseTime)
	}
	if board[3].AverageResponseTime != nil {
		t.Fatalf("untimed participant should have no average")
	}

	for i, e := range board {
		if i > 0 && board[i-1].Score == e.Score && board[i-1].AverageResponseTime != nil && e.AverageResponseTime != nil &&
			*board[i-1].AverageResponseTime > *e.AverageResponseTime {
			t.Fatalf("average response time not ascending at %d", i)
		}
	}
}

func TestComputeLeaderboardIsPure(t *testing.T) {
	participants := map[string]*domain.Participant{
		"u1": {UserID: "u1", Score: 1, Rank: 0, JoinSeq: 1},
		"u2": {UserID: "u2", Score: 2, Rank: 0, JoinSeq: 2},
	}
	first := app.ComputeLeaderboard(participants)
	second := app.ComputeLeaderboard(participants)

	if participants["u1"].Rank != 0 || participants["u2"].Rank != 0 {
		t.Fatalf("compute must not mutate its input")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected identical output, got %+v vs %+v", first[i], second[i])
		}
	}
	if got := app.ComputeLeaderboard(nil); len(got) != 0 {
		t.Fatalf("expected empty leaderboard, got %+v", got)
	}
}
