package grading

import (
	"github.com/gokatarajesh/quizset-service/internal/domain"
)

// AnswerKey maps question id to the set of choice ids flagged correct.
// Build it once per question set with NewAnswerKey; it is read-only afterwards
// and safe for concurrent use.
type AnswerKey map[string]map[string]struct{}

// NewAnswerKey extracts the grading key from a question set's questions.
// When a question id repeats, the first occurrence wins.
func NewAnswerKey(questions []domain.Question) AnswerKey {
	key := make(AnswerKey, len(questions))
	for _, q := range questions {
		if _, exists := key[q.ID]; exists {
			continue
		}
		correct := make(map[string]struct{})
		for _, c := range q.Choices {
			if c.IsCorrectAnswer {
				correct[c.ID] = struct{}{}
			}
		}
		key[q.ID] = correct
	}
	return key
}

// QuestionCount returns the number of distinct questions in the key.
func (k AnswerKey) QuestionCount() int {
	return len(k)
}

// Detail is the per-question verdict kept for review screens.
type Detail struct {
	QuestionID        string   `json:"questionId"`
	SelectedChoiceIDs []string `json:"selectedChoiceIds"`
	IsCorrect         bool     `json:"isCorrect"`
}

// Result is the outcome of grading one submission.
type Result struct {
	Score   int      `json:"score"`
	Total   int      `json:"total"`
	Details []Detail `json:"details"`
}

// Grade scores responses against key. A response is correct only when the
// selection and the correct set match exactly in both directions; an empty
// selection against a question with no correct choices counts as correct.
// Responses naming unknown questions are skipped and do not count toward
// Total. Grade never fails.
func Grade(key AnswerKey, responses []domain.Response) Result {
	result := Result{Details: make([]Detail, 0, len(responses))}

	for _, resp := range responses {
		correct, ok := key[resp.QuestionID]
		if !ok {
			continue
		}

		isCorrect := matches(correct, resp.SelectedChoiceIDs)

		result.Total++
		if isCorrect {
			result.Score++
		}

		selected := make([]string, len(resp.SelectedChoiceIDs))
		copy(selected, resp.SelectedChoiceIDs)
		result.Details = append(result.Details, Detail{
			QuestionID:        resp.QuestionID,
			SelectedChoiceIDs: selected,
			IsCorrect:         isCorrect,
		})
	}

	return result
}

// matches counts both directions independently: every selected id must be
// correct and every correct id must have been selected.
func matches(correct map[string]struct{}, selected []string) bool {
	selectedAreCorrect := 0
	selectedSet := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		selectedSet[id] = struct{}{}
		if _, ok := correct[id]; ok {
			selectedAreCorrect++
		}
	}

	correctSelected := 0
	for id := range correct {
		if _, ok := selectedSet[id]; ok {
			correctSelected++
		}
	}

	return selectedAreCorrect == len(selected) && correctSelected == len(correct)
}
