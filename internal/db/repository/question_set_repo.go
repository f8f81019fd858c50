package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/quizset-service/internal/domain"
)

const (
	getQuestionSetSQL = `
SELECT id, title, description, questions, created_by, created_at
FROM question_sets
WHERE id = $1`

	listQuestionSetsSQL = `
SELECT id, title, jsonb_array_length(questions)
FROM question_sets
ORDER BY created_at DESC, id`

	createQuestionSetSQL = `
INSERT INTO question_sets (id, title, description, questions, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`

	// attempts.question_set_id cascades on delete.
	deleteQuestionSetSQL = `DELETE FROM question_sets WHERE id = $1`
)

// QuestionSetRepository stores question sets as JSONB documents.
type QuestionSetRepository struct {
	db DBTX
}

func NewQuestionSetRepository(db DBTX) *QuestionSetRepository {
	return &QuestionSetRepository{db: db}
}

// GetQuestionSet loads one set with its embedded questions.
func (r *QuestionSetRepository) GetQuestionSet(ctx context.Context, id uuid.UUID) (domain.QuestionSet, error) {
	var (
		setID       pgtype.UUID
		title       string
		description pgtype.Text
		questions   []byte
		createdBy   pgtype.UUID
		createdAt   pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, getQuestionSetSQL, toPgUUID(id)).
		Scan(&setID, &title, &description, &questions, &createdBy, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
		}
		return domain.QuestionSet{}, fmt.Errorf("query question set: %w", err)
	}

	var decoded []domain.Question
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &decoded); err != nil {
			return domain.QuestionSet{}, fmt.Errorf("decode questions of %s: %w", id, err)
		}
	}

	return domain.QuestionSet{
		ID:          fromPgUUID(setID),
		Title:       title,
		Description: description.String,
		Questions:   decoded,
		CreatedBy:   fromPgUUID(createdBy),
		CreatedAt:   createdAt.Time,
	}, nil
}

// ListQuestionSets returns every set, newest first, with its question count.
func (r *QuestionSetRepository) ListQuestionSets(ctx context.Context) ([]domain.QuestionSetSummary, error) {
	rows, err := r.db.Query(ctx, listQuestionSetsSQL)
	if err != nil {
		return nil, fmt.Errorf("query question sets: %w", err)
	}
	defer rows.Close()

	var sets []domain.QuestionSetSummary
	for rows.Next() {
		var (
			id    pgtype.UUID
			title string
			count int32
		)
		if err := rows.Scan(&id, &title, &count); err != nil {
			return nil, fmt.Errorf("scan question set: %w", err)
		}
		sets = append(sets, domain.QuestionSetSummary{ID: fromPgUUID(id), Title: title, QuestionCount: int(count)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question sets: %w", err)
	}
	return sets, nil
}

// CreateQuestionSet inserts set and returns it with the stored creation time.
func (r *QuestionSetRepository) CreateQuestionSet(ctx context.Context, set domain.QuestionSet) (domain.QuestionSet, error) {
	questions := set.Questions
	if questions == nil {
		questions = []domain.Question{}
	}
	encoded, err := json.Marshal(questions)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("encode questions: %w", err)
	}

	description := pgtype.Text{String: set.Description, Valid: set.Description != ""}
	var createdAt pgtype.Timestamptz
	err = r.db.QueryRow(ctx, createQuestionSetSQL,
		toPgUUID(set.ID), set.Title, description, encoded, toPgUUID(set.CreatedBy),
	).Scan(&createdAt)
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("insert question set: %w", err)
	}

	set.Questions = questions
	set.CreatedAt = createdAt.Time
	return set, nil
}

// DeleteQuestionSet removes the set; its attempts go with it.
func (r *QuestionSetRepository) DeleteQuestionSet(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteQuestionSetSQL, toPgUUID(id))
	if err != nil {
		return fmt.Errorf("delete question set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionSetNotFound
	}
	return nil
}
