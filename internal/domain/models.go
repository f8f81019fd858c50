package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role constants carried in access tokens and the user directory.
const (
	RoleUser         = "user"
	RoleProfessional = "professional"
	RoleAdmin        = "admin"
)

// Choice is one selectable option of a question.
type Choice struct {
	ID              string `json:"id" bson:"id"`
	Text            string `json:"text" bson:"text"`
	IsCorrectAnswer bool   `json:"isCorrectAnswer" bson:"is_correct_answer"`
}

// Question is a prompt with its ordered choices. IDs are unique within a set.
type Question struct {
	ID      string   `json:"id" bson:"id"`
	Text    string   `json:"text" bson:"text"`
	Choices []Choice `json:"choices" bson:"choices"`
}

// QuestionSet is an authored collection of questions. Questions are embedded
// and never shared between sets.
type QuestionSet struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
	CreatedBy   uuid.UUID  `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// QuestionSetSummary is the listing view of a question set.
type QuestionSetSummary struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	QuestionCount int       `json:"questionCount"`
}

// Response is a user's raw selection for one question. Untrusted input.
type Response struct {
	QuestionID        string   `json:"questionId" bson:"question_id"`
	SelectedChoiceIDs []string `json:"selectedChoiceIds" bson:"selected_choice_ids"`
}

// NewAttempt carries the fields the caller supplies when persisting a graded
// submission; the store assigns ID and SubmittedAt.
type NewAttempt struct {
	QuestionSetID uuid.UUID
	UserID        uuid.UUID
	Responses     []Response
	Score         int
	Total         int
}

// Attempt is the persisted, immutable outcome of one graded submission.
// Invariant: 0 <= Score <= Total.
type Attempt struct {
	ID            uuid.UUID  `json:"id"`
	QuestionSetID uuid.UUID  `json:"questionSetId"`
	UserID        uuid.UUID  `json:"userId"`
	Responses     []Response `json:"responses"`
	Score         int        `json:"score"`
	Total         int        `json:"total"`
	SubmittedAt   time.Time  `json:"submittedAt"`
}

// Ratio returns score/total, or 0 when the attempt graded no questions.
func (a Attempt) Ratio() float64 {
	if a.Total <= 0 {
		return 0
	}
	return float64(a.Score) / float64(a.Total)
}

// AttemptFilter narrows attempt queries. A nil UserID means all users and a
// zero Since means no lower bound.
type AttemptFilter struct {
	UserID *uuid.UUID
	Since  time.Time
}

// QuestionSetRef is the display projection of a set joined onto an attempt.
type QuestionSetRef struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
}

// AttemptSummary is an attempt joined with its question set for history views.
type AttemptSummary struct {
	Attempt
	QuestionSet QuestionSetRef `json:"questionSet"`
}

// User is a user directory entry.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

// LeaderboardSnapshot is a persisted copy of a computed leaderboard. Entries
// holds the JSON-encoded wire rows; SourceHash is their sha256.
type LeaderboardSnapshot struct {
	ID          int64
	Timeframe   string
	SortBy      string
	GeneratedAt time.Time
	Entries     []byte
	SourceHash  string
}
