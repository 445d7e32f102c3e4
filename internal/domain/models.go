package domain

import "time"

// Participant is the live state of one student inside a room.
type Participant struct {
	UserID              string
	Username            string
	Avatar              string
	Score               float64
	CorrectAnswersCount int
	Violations          int
	Rank                int

	// JoinSeq orders participants by join time within their room.
	JoinSeq uint64
	// TimedAnswers counts submissions that reported a response time.
	TimedAnswers      int
	ResponseTimeTotal float64
}

// AverageResponseTime returns the mean reported response time, if any was reported.
func (p *Participant) AverageResponseTime() (float64, bool) {
	if p.TimedAnswers == 0 {
		return 0, false
	}
	return p.ResponseTimeTotal / float64(p.TimedAnswers), true
}

// Answer is a single scoring signal from a student client. The score is a
// delta chosen by the client; nil optional fields mean "not reported".
type Answer struct {
	UserID       string
	Correct      bool
	ScoreDelta   float64
	Violations   *int
	ResponseTime *float64
}

// LeaderboardEntry is an immutable ranked snapshot of a participant.
type LeaderboardEntry struct {
	UserID              string   `json:"userId"`
	Username            string   `json:"username"`
	Avatar              string   `json:"avatar"`
	Score               float64  `json:"score"`
	CorrectAnswersCount int      `json:"correctAnswersCount"`
	Violations          int      `json:"violations"`
	AverageResponseTime *float64 `json:"averageResponseTime,omitempty"`
	Rank                int      `json:"rank"`
}

// ParticipantScore is one finalized row of a persisted scoreboard.
type ParticipantScore struct {
	UserID              string   `json:"userId"`
	Username            string   `json:"username"`
	Score               float64  `json:"score"`
	CorrectAnswersCount int      `json:"correctAnswersCount"`
	AverageResponseTime *float64 `json:"averageResponseTime,omitempty"`
	Rank                int      `json:"rank"`
}

// End reasons recorded on a scoreboard.
const (
	EndReasonCreator  = "creator"
	EndReasonIdle     = "idle"
	EndReasonShutdown = "shutdown"
)

// ScoreboardRecord is the durable result of one finished quiz session.
// A quiz restarted in a new room produces a new record with a new ID.
type ScoreboardRecord struct {
	ID                string             `json:"id"`
	QuizID            string             `json:"quizId"`
	EndReason         string             `json:"endReason"`
	EndedAt           time.Time          `json:"endedAt"`
	ParticipantScores []ParticipantScore `json:"participantScores"`
}

// NewScoreboardRecord freezes a final leaderboard into a record.
func NewScoreboardRecord(id, quizID, reason string, endedAt time.Time, board []LeaderboardEntry) ScoreboardRecord {
	scores := make([]ParticipantScore, 0, len(board))
	for _, e := range board {
		scores = append(scores, ParticipantScore{
			UserID:              e.UserID,
			Username:            e.Username,
			Score:               e.Score,
			CorrectAnswersCount: e.CorrectAnswersCount,
			AverageResponseTime: e.AverageResponseTime,
			Rank:                e.Rank,
		})
	}
	return ScoreboardRecord{
		ID:                id,
		QuizID:            quizID,
		EndReason:         reason,
		EndedAt:           endedAt,
		ParticipantScores: scores,
	}
}
