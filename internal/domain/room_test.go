package domain

import (
	"errors"
	"testing"
	"time"
)

func TestRoomJoinOverwritesSameUser(t *testing.T) {
	now := time.Unix(100, 0)
	room := NewRoom("quiz-1", "conn-creator", now)

	if room.Join("u1", "Alice", "a.png", now) {
		t.Fatalf("first join should not report rejoin")
	}
	if _, err := room.ApplyAnswer(Answer{UserID: "u1", Correct: true, ScoreDelta: 5}, now); err != nil {
		t.Fatalf("apply answer: %v", err)
	}
	if !room.Join("u1", "Alice2", "b.png", now) {
		t.Fatalf("second join should report rejoin")
	}

	if len(room.Participants) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(room.Participants))
	}
	p := room.Participants["u1"]
	if p.Username != "Alice2" || p.Avatar != "b.png" || p.Score != 0 || p.CorrectAnswersCount != 0 {
		t.Fatalf("expected overwritten participant, got %+v", p)
	}
}

func TestRoomApplyAnswer(t *testing.T) {
	now := time.Unix(100, 0)
	room := NewRoom("quiz-1", "c", now)
	room.Join("u1", "Alice", "", now)

	three := 3
	rt := 1200.0
	later := now.Add(time.Minute)
	p, err := room.ApplyAnswer(Answer{UserID: "u1", Correct: true, ScoreDelta: 10, Violations: &three, ResponseTime: &rt}, later)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if p.Score != 10 || p.CorrectAnswersCount != 1 || p.Violations != 3 {
		t.Fatalf("unexpected state after correct answer: %+v", p)
	}
	if !room.LastActivity.Equal(later) {
		t.Fatalf("expected last activity to advance")
	}

	// Incorrect answers still apply the delta, and absent violations keep the last value.
	p, _ = room.ApplyAnswer(Answer{UserID: "u1", Correct: false, ScoreDelta: 2}, later)
	if p.Score != 12 || p.CorrectAnswersCount != 1 || p.Violations != 3 {
		t.Fatalf("unexpected state after incorrect answer: %+v", p)
	}

	one := 1
	p, _ = room.ApplyAnswer(Answer{UserID: "u1", Violations: &one}, later)
	if p.Violations != 1 {
		t.Fatalf("violations should be replaced, got %d", p.Violations)
	}

	avg, ok := p.AverageResponseTime()
	if !ok || avg != 1200 {
		t.Fatalf("expected average 1200, got %v (tracked=%v)", avg, ok)
	}
}

func TestRoomApplyAnswerUnknownUser(t *testing.T) {
	room := NewRoom("quiz-1", "c", time.Now())
	if _, err := room.ApplyAnswer(Answer{UserID: "ghost", ScoreDelta: 1}, time.Now()); !errors.Is(err, ErrParticipantNotFound) {
		t.Fatalf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestRoomIdleSince(t *testing.T) {
	start := time.Unix(0, 0)
	room := NewRoom("quiz-1", "c", start)
	if room.IdleSince(start.Add(time.Minute), 0) {
		t.Fatalf("zero ttl never expires")
	}
	if room.IdleSince(start.Add(time.Minute), time.Hour) {
		t.Fatalf("room should still be active")
	}
	if !room.IdleSince(start.Add(2*time.Hour), time.Hour) {
		t.Fatalf("room should be idle")
	}
	if !room.IsCreator("c") || room.IsCreator("other") || room.IsCreator("") {
		t.Fatalf("creator check mismatch")
	}
	if err := room.RequireCreator("c"); err != nil {
		t.Fatalf("creator rejected: %v", err)
	}
	if err := room.RequireCreator("other"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}
}
