package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/quizset-service/internal/domain"
)

const (
	createAttemptSQL = `
INSERT INTO attempts (id, question_set_id, user_id, responses, score, total)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING submitted_at`

	listAttemptsBaseSQL = `
SELECT id, question_set_id, user_id, responses, score, total, submitted_at
FROM attempts`

	listAttemptSummariesSQL = `
SELECT a.id, a.question_set_id, a.user_id, a.responses, a.score, a.total, a.submitted_at,
       q.title, q.description
FROM attempts a
JOIN question_sets q ON q.id = a.question_set_id
WHERE a.user_id = $1
ORDER BY a.submitted_at DESC, a.id`
)

// AttemptRepository persists graded attempts.
type AttemptRepository struct {
	db DBTX
}

func NewAttemptRepository(db DBTX) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// CreateAttempt stores a graded submission. The id is generated here and the
// timestamp by the database.
func (r *AttemptRepository) CreateAttempt(ctx context.Context, attempt domain.NewAttempt) (domain.Attempt, error) {
	responses := attempt.Responses
	if responses == nil {
		responses = []domain.Response{}
	}
	encoded, err := json.Marshal(responses)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("encode responses: %w", err)
	}

	id := uuid.New()
	var submittedAt pgtype.Timestamptz
	err = r.db.QueryRow(ctx, createAttemptSQL,
		toPgUUID(id), toPgUUID(attempt.QuestionSetID), toPgUUID(attempt.UserID),
		encoded, int32(attempt.Score), int32(attempt.Total),
	).Scan(&submittedAt)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}

	return domain.Attempt{
		ID:            id,
		QuestionSetID: attempt.QuestionSetID,
		UserID:        attempt.UserID,
		Responses:     responses,
		Score:         attempt.Score,
		Total:         attempt.Total,
		SubmittedAt:   submittedAt.Time,
	}, nil
}

// ListAttempts returns attempts matching filter in submission order.
func (r *AttemptRepository) ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	query, args := buildListAttempts(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var row attemptRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// ListAttemptSummaries returns userID's attempts joined with their set,
// newest first.
func (r *AttemptRepository) ListAttemptSummaries(ctx context.Context, userID uuid.UUID) ([]domain.AttemptSummary, error) {
	rows, err := r.db.Query(ctx, listAttemptSummariesSQL, toPgUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query attempt summaries: %w", err)
	}
	defer rows.Close()

	var summaries []domain.AttemptSummary
	for rows.Next() {
		var (
			row         attemptRow
			title       string
			description pgtype.Text
		)
		if err := rows.Scan(append(row.dest(), &title, &description)...); err != nil {
			return nil, fmt.Errorf("scan attempt summary: %w", err)
		}
		a, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, domain.AttemptSummary{
			Attempt: a,
			QuestionSet: domain.QuestionSetRef{
				ID:          a.QuestionSetID,
				Title:       title,
				Description: description.String,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt summaries: %w", err)
	}
	return summaries, nil
}

func buildListAttempts(filter domain.AttemptFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, toPgUUID(*filter.UserID))
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		where = append(where, fmt.Sprintf("submitted_at >= $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(listAttemptsBaseSQL)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\nORDER BY submitted_at, id")
	return b.String(), args
}

type attemptRow struct {
	id, setID, userID pgtype.UUID
	responses         []byte
	score, total      int32
	submittedAt       pgtype.Timestamptz
}

func (r *attemptRow) dest() []any {
	return []any{&r.id, &r.setID, &r.userID, &r.responses, &r.score, &r.total, &r.submittedAt}
}

func (r *attemptRow) toDomain() (domain.Attempt, error) {
	responses := []domain.Response{}
	if len(r.responses) > 0 {
		if err := json.Unmarshal(r.responses, &responses); err != nil {
			return domain.Attempt{}, fmt.Errorf("decode responses of attempt %s: %w", fromPgUUID(r.id), err)
		}
	}
	return domain.Attempt{
		ID:            fromPgUUID(r.id),
		QuestionSetID: fromPgUUID(r.setID),
		UserID:        fromPgUUID(r.userID),
		Responses:     responses,
		Score:         int(r.score),
		Total:         int(r.total),
		SubmittedAt:   r.submittedAt.Time,
	}, nil
}
