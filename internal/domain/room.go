package domain

import "time"

// Room is the in-memory state of one live quiz session. It is owned by the
// session coordinator and must only be mutated from its event loop.
type Room struct {
	QuizID        string
	CreatorConnID string
	Participants  map[string]*Participant
	CreatedAt     time.Time
	LastActivity  time.Time

	nextSeq uint64
}

// NewRoom returns an empty room started by the given connection.
func NewRoom(quizID, creatorConnID string, now time.Time) *Room {
	return &Room{
		QuizID:        quizID,
		CreatorConnID: creatorConnID,
		Participants:  make(map[string]*Participant),
		CreatedAt:     now,
		LastActivity:  now,
	}
}

// Join registers a participant with zeroed counters. A second join by the same
// userID overwrites the previous entry and reports rejoined=true.
func (r *Room) Join(userID, username, avatar string, now time.Time) (rejoined bool) {
	_, rejoined = r.Participants[userID]
	r.nextSeq++
	r.Participants[userID] = &Participant{
		UserID:   userID,
		Username: username,
		Avatar:   avatar,
		JoinSeq:  r.nextSeq,
	}
	r.LastActivity = now
	return rejoined
}

// ApplyAnswer folds a submission into the participant's running totals.
// Score is additive, the correct count grows by one per correct answer and
// violations take the latest reported value.
func (r *Room) ApplyAnswer(a Answer, now time.Time) (*Participant, error) {
	p, ok := r.Participants[a.UserID]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	p.Score += a.ScoreDelta
	if a.Correct {
		p.CorrectAnswersCount++
	}
	if a.Violations != nil {
		p.Violations = *a.Violations
	}
	if a.ResponseTime != nil && *a.ResponseTime >= 0 {
		p.TimedAnswers++
		p.ResponseTimeTotal += *a.ResponseTime
	}
	r.LastActivity = now
	return p, nil
}

// IsCreator reports whether connID started this room.
func (r *Room) IsCreator(connID string) bool {
	return connID != "" && r.CreatorConnID == connID
}

// RequireCreator returns ErrNotCreator unless connID started this room.
func (r *Room) RequireCreator(connID string) error {
	if !r.IsCreator(connID) {
		return ErrNotCreator
	}
	return nil
}

// IdleSince reports whether the room has seen no activity for at least ttl.
func (r *Room) IdleSince(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(r.LastActivity) >= ttl
}
