package app

import (
	"sort"

	"live-quiz-engine/internal/domain"
)

// ComputeLeaderboard ranks participants without touching them. Entries are
// ordered by score descending; equal scores put participants with a tracked
// average response time first (fastest first), then earlier joiners, then
// userID. Rank is the 1-based position in the result.
func ComputeLeaderboard(participants map[string]*domain.Participant) []domain.LeaderboardEntry {
	ordered := make([]*domain.Participant, 0, len(participants))
	for _, p := range participants {
		ordered = append(ordered, p)
	}

	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		avgA, timedA := a.AverageResponseTime()
		avgB, timedB := b.AverageResponseTime()
		if timedA != timedB {
			return timedA
		}
		if timedA && avgA != avgB {
			return avgA < avgB
		}
		if a.JoinSeq != b.JoinSeq {
			return a.JoinSeq < b.JoinSeq
		}
		return a.UserID < b.UserID
	})

	entries := make([]domain.LeaderboardEntry, len(ordered))
	for i, p := range ordered {
		entries[i] = domain.LeaderboardEntry{
			UserID:              p.UserID,
			Username:            p.Username,
			Avatar:              p.Avatar,
			Score:               p.Score,
			CorrectAnswersCount: p.CorrectAnswersCount,
			Violations:          p.Violations,
			Rank:                i + 1,
		}
		if avg, ok := p.AverageResponseTime(); ok {
			entries[i].AverageResponseTime = &avg
		}
	}
	return entries
}
