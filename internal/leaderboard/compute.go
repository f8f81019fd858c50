package leaderboard

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quizset-service/internal/domain"
)

// WindowStart returns the earliest submission time included by tf, or the
// zero time for TimeframeAll (and any unrecognized value). Month and year
// steps use calendar arithmetic, so March 31 minus one month normalizes to
// March 3 (or 2 in leap years).
func WindowStart(now time.Time, tf Timeframe) time.Time {
	switch tf {
	case TimeframeWeek:
		return now.AddDate(0, 0, -7)
	case TimeframeMonth:
		return now.AddDate(0, -1, 0)
	case TimeframeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

type group struct {
	userID    uuid.UUID
	quizzes   int
	score     int
	questions int
	ratioSum  float64
	best      float64
}

// Compute ranks users by their attempts inside the filter window. Users
// missing from the directory are dropped. Ties keep the order in which each
// user's first attempt appears in attempts. A non-positive Limit disables
// truncation. The result is never nil.
func Compute(attempts []domain.Attempt, users map[uuid.UUID]domain.User, f Filters, now time.Time) []Entry {
	start := WindowStart(now, f.Timeframe)

	groups := make([]*group, 0)
	index := make(map[uuid.UUID]*group)
	for _, a := range attempts {
		if !start.IsZero() && a.SubmittedAt.Before(start) {
			continue
		}
		g, ok := index[a.UserID]
		if !ok {
			g = &group{userID: a.UserID}
			index[a.UserID] = g
			groups = append(groups, g)
		}
		r := a.Ratio()
		if g.quizzes == 0 || r > g.best {
			g.best = r
		}
		g.quizzes++
		g.score += a.Score
		g.questions += a.Total
		g.ratioSum += r
	}

	entries := make([]Entry, 0, len(groups))
	for _, g := range groups {
		u, ok := users[g.userID]
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			UserID:            g.userID,
			Name:              u.Name,
			Email:             u.Email,
			TotalQuizzes:      g.quizzes,
			TotalScore:        g.score,
			TotalQuestions:    g.questions,
			AveragePercentage: g.ratioSum / float64(g.quizzes) * 100,
			HighestPercentage: g.best * 100,
		})
	}

	key := sortKey(f.SortBy)
	sort.SliceStable(entries, func(i, j int) bool {
		return key(entries[i]) > key(entries[j])
	})

	if f.Limit > 0 && len(entries) > f.Limit {
		entries = entries[:f.Limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func sortKey(sb SortBy) func(Entry) float64 {
	switch sb {
	case SortByTotal:
		return func(e Entry) float64 { return float64(e.TotalScore) }
	case SortByQuizzes:
		return func(e Entry) float64 { return float64(e.TotalQuizzes) }
	default:
		return func(e Entry) float64 { return e.AveragePercentage }
	}
}

// userIDs returns the distinct users of attempts in first-seen order.
func userIDs(attempts []domain.Attempt) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(attempts))
	ids := make([]uuid.UUID, 0)
	for _, a := range attempts {
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		ids = append(ids, a.UserID)
	}
	return ids
}
