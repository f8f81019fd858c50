package stats

import (
	"math"

	"github.com/gokatarajesh/quizset-service/internal/domain"
)

// UserStats summarizes one user's graded attempts.
type UserStats struct {
	TotalAttempts     int     `json:"totalAttempts"`
	TotalScore        int     `json:"totalScore"`
	TotalQuestions    int     `json:"totalQuestions"`
	AverageRatio      float64 `json:"averageScore"`
	HighestRatio      float64 `json:"highestScore"`
	LowestRatio       float64 `json:"lowestScore"`
	AveragePercentage int     `json:"averagePercentage"`
	HighestPercentage int     `json:"highestPercentage"`
	LowestPercentage  int     `json:"lowestPercentage"`
}

// Compute folds attempts into UserStats. Attempts with no graded questions
// contribute a ratio of 0. An empty input yields the zero value.
func Compute(attempts []domain.Attempt) UserStats {
	var s UserStats
	if len(attempts) == 0 {
		return s
	}

	var ratioSum float64
	s.HighestRatio = math.Inf(-1)
	s.LowestRatio = math.Inf(1)

	for _, a := range attempts {
		s.TotalAttempts++
		s.TotalScore += a.Score
		s.TotalQuestions += a.Total

		r := a.Ratio()
		ratioSum += r
		if r > s.HighestRatio {
			s.HighestRatio = r
		}
		if r < s.LowestRatio {
			s.LowestRatio = r
		}
	}

	s.AverageRatio = ratioSum / float64(s.TotalAttempts)
	s.AveragePercentage = Percent(s.AverageRatio)
	s.HighestPercentage = Percent(s.HighestRatio)
	s.LowestPercentage = Percent(s.LowestRatio)
	return s
}

// Percent converts a ratio to a whole percentage, rounding halves up.
func Percent(ratio float64) int {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return int(math.Round(ratio * 100))
}
