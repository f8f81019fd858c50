package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/gokatarajesh/quizset-service/internal/domain"
)

// GetQuestionSet loads one set document.
func (s *Store) GetQuestionSet(ctx context.Context, id uuid.UUID) (domain.QuestionSet, error) {
	var doc questionSetDoc
	if err := s.sets.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
		}
		return domain.QuestionSet{}, fmt.Errorf("find question set: %w", err)
	}
	return doc.toDomain()
}

// ListQuestionSets returns every set, newest first, with its question count.
func (s *Store) ListQuestionSets(ctx context.Context) ([]domain.QuestionSetSummary, error) {
	cursor, err := s.sets.Aggregate(ctx, listPipeline())
	if err != nil {
		return nil, fmt.Errorf("aggregate question sets: %w", err)
	}
	defer cursor.Close(ctx)

	var sets []domain.QuestionSetSummary
	for cursor.Next(ctx) {
		var doc questionSetSummaryDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode question set: %w", err)
		}
		summary, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		sets = append(sets, summary)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate question sets: %w", err)
	}
	return sets, nil
}

// CreateQuestionSet inserts the whole document.
func (s *Store) CreateQuestionSet(ctx context.Context, set domain.QuestionSet) (domain.QuestionSet, error) {
	if set.CreatedAt.IsZero() {
		set.CreatedAt = now()
	}
	doc := fromQuestionSet(set)
	if _, err := s.sets.InsertOne(ctx, doc); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("insert question set: %w", err)
	}
	set.Questions = doc.Questions
	return set, nil
}

// DeleteQuestionSet removes every attempt made against the set and then the
// set itself.
func (s *Store) DeleteQuestionSet(ctx context.Context, id uuid.UUID) error {
	return deleteQuestionSet(ctx, s.sets, s.attempts, id)
}

type oneDeleter interface {
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
}

type manyDeleter interface {
	DeleteMany(ctx context.Context, filter any, opts ...options.Lister[options.DeleteManyOptions]) (*mongo.DeleteResult, error)
}

// deleteQuestionSet clears attempts first so a failure part way leaves at
// worst a set without attempts, which a retry can still delete.
func deleteQuestionSet(ctx context.Context, sets oneDeleter, attempts manyDeleter, id uuid.UUID) error {
	if _, err := attempts.DeleteMany(ctx, bson.M{"question_set_id": id.String()}); err != nil {
		return fmt.Errorf("delete attempts of question set %s: %w", id, err)
	}
	res, err := sets.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("delete question set: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrQuestionSetNotFound
	}
	return nil
}

// CreateAttempt stores a graded submission with a fresh id and timestamp.
func (s *Store) CreateAttempt(ctx context.Context, in domain.NewAttempt) (domain.Attempt, error) {
	responses := in.Responses
	if responses == nil {
		responses = []domain.Response{}
	}
	attempt := domain.Attempt{
		ID:            uuid.New(),
		QuestionSetID: in.QuestionSetID,
		UserID:        in.UserID,
		Responses:     responses,
		Score:         in.Score,
		Total:         in.Total,
		SubmittedAt:   now(),
	}
	if _, err := s.attempts.InsertOne(ctx, fromAttempt(attempt)); err != nil {
		return domain.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return attempt, nil
}

// ListAttempts returns attempts matching filter in submission order.
func (s *Store) ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.attempts.Find(ctx, attemptFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find attempts: %w", err)
	}
	defer cursor.Close(ctx)

	var attempts []domain.Attempt
	for cursor.Next(ctx) {
		var doc attemptDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode attempt: %w", err)
		}
		a, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// ListAttemptSummaries returns userID's attempts joined with their set,
// newest first.
func (s *Store) ListAttemptSummaries(ctx context.Context, userID uuid.UUID) ([]domain.AttemptSummary, error) {
	cursor, err := s.attempts.Aggregate(ctx, summaryPipeline(userID))
	if err != nil {
		return nil, fmt.Errorf("aggregate attempt summaries: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []domain.AttemptSummary
	for cursor.Next(ctx) {
		var doc attemptSummaryDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode attempt summary: %w", err)
		}
		summary, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt summaries: %w", err)
	}
	return summaries, nil
}

// GetUser fetches one directory entry.
func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain()
}

// LookupUsers returns the entries for ids; unknown ids are absent.
func (s *Store) LookupUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error) {
	users := make(map[uuid.UUID]domain.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	keys := make(bson.A, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		u, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// InsertSnapshot appends a snapshot document.
func (s *Store) InsertSnapshot(ctx context.Context, snap domain.LeaderboardSnapshot) error {
	doc := snapshotDoc{
		Timeframe:   snap.Timeframe,
		SortBy:      snap.SortBy,
		GeneratedAt: snap.GeneratedAt,
		Entries:     snap.Entries,
		SourceHash:  snap.SourceHash,
	}
	if _, err := s.snapshots.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert leaderboard snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot for the filter pair.
func (s *Store) LatestSnapshot(ctx context.Context, timeframe, sortBy string) (domain.LeaderboardSnapshot, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "generated_at", Value: -1}, {Key: "_id", Value: -1}})
	var doc snapshotDoc
	err := s.snapshots.FindOne(ctx, bson.M{"time_window": timeframe, "sort_by": sortBy}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.LeaderboardSnapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.LeaderboardSnapshot{}, fmt.Errorf("find leaderboard snapshot: %w", err)
	}
	return doc.toDomain(), nil
}

// now returns the current time at the millisecond precision BSON stores.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
