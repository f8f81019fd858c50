package leaderboard

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Timeframe selects the leaderboard window.
type Timeframe string

// Supported leaderboard windows.
const (
	TimeframeAll   Timeframe = "all"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

var defaultTimeframes = []Timeframe{TimeframeAll, TimeframeWeek, TimeframeMonth, TimeframeYear}

// SortBy selects the ranking key.
type SortBy string

// Supported ranking keys.
const (
	SortByAverage SortBy = "average"
	SortByTotal   SortBy = "total"
	SortByQuizzes SortBy = "quizzes"
)

// Limit bounds accepted at the HTTP boundary.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// ErrInvalidFilter is returned by ParseFilters for unrecognized values.
var ErrInvalidFilter = errors.New("invalid leaderboard filter")

// Filters parameterize a leaderboard query.
type Filters struct {
	Timeframe Timeframe
	SortBy    SortBy
	Limit     int
}

// DefaultFilters is the leaderboard shown when no query parameters are given.
func DefaultFilters() Filters {
	return Filters{Timeframe: TimeframeAll, SortBy: SortByAverage, Limit: DefaultLimit}
}

// ParseFilters validates raw query values. Empty values take defaults;
// unrecognized timeframe or sortBy values are rejected rather than silently
// mapped to another ordering. Limit is clamped to [1, MaxLimit].
func ParseFilters(timeframe, sortBy, limit string) (Filters, error) {
	f := DefaultFilters()

	if timeframe != "" {
		tf := Timeframe(timeframe)
		if !tf.Valid() {
			return Filters{}, fmt.Errorf("%w: timeframe %q", ErrInvalidFilter, timeframe)
		}
		f.Timeframe = tf
	}

	if sortBy != "" {
		sb := SortBy(sortBy)
		if !sb.Valid() {
			return Filters{}, fmt.Errorf("%w: sortBy %q", ErrInvalidFilter, sortBy)
		}
		f.SortBy = sb
	}

	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n <= 0 {
			return Filters{}, fmt.Errorf("%w: limit %q", ErrInvalidFilter, limit)
		}
		if n > MaxLimit {
			n = MaxLimit
		}
		f.Limit = n
	}

	return f, nil
}

// Valid reports whether tf is a known window.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TimeframeAll, TimeframeWeek, TimeframeMonth, TimeframeYear:
		return true
	default:
		return false
	}
}

// Valid reports whether sb is a known ranking key.
func (sb SortBy) Valid() bool {
	switch sb {
	case SortByAverage, SortByTotal, SortByQuizzes:
		return true
	default:
		return false
	}
}

// Entry is one ranked row of the leaderboard. Percentages are unrounded.
type Entry struct {
	UserID            uuid.UUID `json:"userId"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	TotalQuizzes      int       `json:"totalQuizzes"`
	TotalScore        int       `json:"totalScore"`
	TotalQuestions    int       `json:"totalQuestions"`
	AveragePercentage float64   `json:"averagePercentage"`
	HighestPercentage float64   `json:"highestPercentage"`
	Rank              int       `json:"rank"`
}
