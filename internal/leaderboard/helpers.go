package leaderboard

import (
	"math"

	ws "github.com/gokatarajesh/quizset-service/pkg/http/ws"
)

func toWSEntries(entries []Entry) []ws.LeaderboardEntry {
	result := make([]ws.LeaderboardEntry, len(entries))
	for i, e := range entries {
		result[i] = ws.LeaderboardEntry{
			Rank:              e.Rank,
			UserID:            e.UserID.String(),
			Name:              e.Name,
			Email:             e.Email,
			TotalQuizzes:      e.TotalQuizzes,
			TotalScore:        e.TotalScore,
			TotalQuestions:    e.TotalQuestions,
			AveragePercentage: round2(e.AveragePercentage),
			HighestPercentage: round2(e.HighestPercentage),
		}
	}
	return result
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
