package quiz

import (
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quizset-service/internal/domain"
	"github.com/gokatarajesh/quizset-service/internal/grading"
)

// PublicChoice is a choice as shown to quiz takers.
type PublicChoice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PublicQuestion is a question without its answer key.
type PublicQuestion struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Choices []PublicChoice `json:"choices"`
}

// PublicQuestionSet is the view of a set served before submission.
type PublicQuestionSet struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Questions   []PublicQuestion `json:"questions"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// CreateChoiceRequest describes one authored choice. ID is optional.
type CreateChoiceRequest struct {
	ID              string `json:"id,omitempty"`
	Text            string `json:"text"`
	IsCorrectAnswer bool   `json:"isCorrectAnswer"`
}

// CreateQuestionRequest describes one authored question. ID is optional.
type CreateQuestionRequest struct {
	ID      string                `json:"id,omitempty"`
	Text    string                `json:"text"`
	Choices []CreateChoiceRequest `json:"choices"`
}

// CreateQuestionSetRequest is the admin payload for a new set.
type CreateQuestionSetRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Questions   []CreateQuestionRequest `json:"questions"`
}

// SubmitRequest is a user's answers to one set.
type SubmitRequest struct {
	QuestionSet string            `json:"questionSet"`
	Responses   []domain.Response `json:"responses"`
}

// SubmitResult reports the graded outcome of a submission.
type SubmitResult struct {
	AttemptID uuid.UUID        `json:"attemptId"`
	Score     int              `json:"score"`
	Total     int              `json:"total"`
	Details   []grading.Detail `json:"details"`
}

// AttemptView is one row of a user's attempt history.
type AttemptView struct {
	ID          uuid.UUID             `json:"id"`
	QuestionSet domain.QuestionSetRef `json:"questionSet"`
	Score       int                   `json:"score"`
	Total       int                   `json:"total"`
	Percentage  int                   `json:"percentage"`
	AttemptedAt time.Time             `json:"attemptedAt"`
	Responses   []domain.Response     `json:"responses"`
}

// History is a user's attempts, newest first.
type History struct {
	Attempts      []AttemptView `json:"attempts"`
	TotalAttempts int           `json:"totalAttempts"`
}

func toPublic(set domain.QuestionSet) PublicQuestionSet {
	questions := make([]PublicQuestion, len(set.Questions))
	for i, q := range set.Questions {
		choices := make([]PublicChoice, len(q.Choices))
		for j, c := range q.Choices {
			choices[j] = PublicChoice{ID: c.ID, Text: c.Text}
		}
		questions[i] = PublicQuestion{ID: q.ID, Text: q.Text, Choices: choices}
	}
	return PublicQuestionSet{
		ID:          set.ID,
		Title:       set.Title,
		Description: set.Description,
		Questions:   questions,
		CreatedAt:   set.CreatedAt,
	}
}
