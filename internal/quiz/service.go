package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizset-service/internal/domain"
	"github.com/gokatarajesh/quizset-service/internal/grading"
	"github.com/gokatarajesh/quizset-service/internal/metrics"
	"github.com/gokatarajesh/quizset-service/internal/stats"
)

// ErrTooManyResponses rejects submissions larger than the configured bound.
var ErrTooManyResponses = errors.New("too many responses")

// QuestionSetStore persists question set documents.
type QuestionSetStore interface {
	GetQuestionSet(ctx context.Context, id uuid.UUID) (domain.QuestionSet, error)
	ListQuestionSets(ctx context.Context) ([]domain.QuestionSetSummary, error)
	CreateQuestionSet(ctx context.Context, set domain.QuestionSet) (domain.QuestionSet, error)
	// DeleteQuestionSet removes the set and every attempt made against it.
	DeleteQuestionSet(ctx context.Context, id uuid.UUID) error
}

// AttemptStore persists graded attempts.
type AttemptStore interface {
	CreateAttempt(ctx context.Context, attempt domain.NewAttempt) (domain.Attempt, error)
	ListAttemptSummaries(ctx context.Context, userID uuid.UUID) ([]domain.AttemptSummary, error)
}

// AnswerKeyCache defines cache behavior (implemented by Redis-backed KeyCache).
// Get returns a nil key on a miss.
type AnswerKeyCache interface {
	Get(ctx context.Context, id uuid.UUID) (grading.AnswerKey, error)
	Set(ctx context.Context, id uuid.UUID, key grading.AnswerKey) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// LeaderboardNotifier is told about every stored attempt and cascade delete.
type LeaderboardNotifier interface {
	RecordAttempt(ctx context.Context, attempt domain.Attempt) error
	Invalidate(ctx context.Context) error
}

// ServiceOptions tunes submission handling.
type ServiceOptions struct {
	MaxResponses int
}

// Service owns question sets and the submit-grade-persist flow.
type Service struct {
	sets         QuestionSetStore
	attempts     AttemptStore
	cache        AnswerKeyCache
	leaderboard  LeaderboardNotifier
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	maxResponses int
}

// NewService wires the quiz service. cache and leaderboard may be nil.
func NewService(sets QuestionSetStore, attempts AttemptStore, cache AnswerKeyCache, lb LeaderboardNotifier, m *metrics.Metrics, logger zerolog.Logger, opts ServiceOptions) *Service {
	return &Service{
		sets:         sets,
		attempts:     attempts,
		cache:        cache,
		leaderboard:  lb,
		metrics:      m,
		logger:       logger.With().Str("component", "quiz").Logger(),
		maxResponses: opts.MaxResponses,
	}
}

// List returns every set with its question count.
func (s *Service) List(ctx context.Context) ([]domain.QuestionSetSummary, error) {
	sets, err := s.sets.ListQuestionSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	if sets == nil {
		sets = []domain.QuestionSetSummary{}
	}
	return sets, nil
}

// Get returns the public view of a set, without correct answer flags.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (PublicQuestionSet, error) {
	set, err := s.sets.GetQuestionSet(ctx, id)
	if err != nil {
		return PublicQuestionSet{}, fmt.Errorf("get question set %s: %w", id, err)
	}
	return toPublic(set), nil
}

// Create stores a new set authored by creator. Missing question and choice
// ids are generated.
func (s *Service) Create(ctx context.Context, creator uuid.UUID, req CreateQuestionSetRequest) (domain.QuestionSet, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.QuestionSet{}, fmt.Errorf("%w: title is required", domain.ErrInvalidQuestionSet)
	}

	questions := make([]domain.Question, len(req.Questions))
	for i, q := range req.Questions {
		choices := make([]domain.Choice, len(q.Choices))
		for j, c := range q.Choices {
			choices[j] = domain.Choice{ID: idOrNew(c.ID), Text: c.Text, IsCorrectAnswer: c.IsCorrectAnswer}
		}
		questions[i] = domain.Question{ID: idOrNew(q.ID), Text: q.Text, Choices: choices}
	}

	set, err := s.sets.CreateQuestionSet(ctx, domain.QuestionSet{
		ID:          uuid.New(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Questions:   questions,
		CreatedBy:   creator,
	})
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("create question set: %w", err)
	}

	s.logger.Info().
		Str("question_set_id", set.ID.String()).
		Int("questions", len(set.Questions)).
		Msg("question set created")
	return set, nil
}

// Delete removes a set, its attempts and its cached answer key.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.sets.DeleteQuestionSet(ctx, id); err != nil {
		return fmt.Errorf("delete question set %s: %w", id, err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.logger.Warn().Err(err).Str("question_set_id", id.String()).Msg("answer key cache invalidation failed")
		}
	}
	if s.leaderboard != nil {
		if err := s.leaderboard.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("leaderboard invalidation failed")
		}
	}

	s.logger.Info().Str("question_set_id", id.String()).Msg("question set deleted")
	return nil
}

// Submit grades responses against the set's answer key and stores the attempt.
func (s *Service) Submit(ctx context.Context, userID, setID uuid.UUID, responses []domain.Response) (SubmitResult, error) {
	if s.maxResponses > 0 && len(responses) > s.maxResponses {
		return SubmitResult{}, fmt.Errorf("%w: %d > %d", ErrTooManyResponses, len(responses), s.maxResponses)
	}

	key, err := s.answerKey(ctx, setID)
	if err != nil {
		return SubmitResult{}, err
	}

	result := grading.Grade(key, responses)

	if responses == nil {
		responses = []domain.Response{}
	}
	attempt, err := s.attempts.CreateAttempt(ctx, domain.NewAttempt{
		QuestionSetID: setID,
		UserID:        userID,
		Responses:     responses,
		Score:         result.Score,
		Total:         result.Total,
	})
	if err != nil {
		return SubmitResult{}, fmt.Errorf("store attempt: %w", err)
	}

	s.metrics.ObserveAttempt(result.Score, result.Total)
	if s.leaderboard != nil {
		if err := s.leaderboard.RecordAttempt(ctx, attempt); err != nil {
			s.logger.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("leaderboard notification failed")
		}
	}

	return SubmitResult{
		AttemptID: attempt.ID,
		Score:     result.Score,
		Total:     result.Total,
		Details:   result.Details,
	}, nil
}

// History returns userID's attempts, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) (History, error) {
	summaries, err := s.attempts.ListAttemptSummaries(ctx, userID)
	if err != nil {
		return History{}, fmt.Errorf("list attempts for %s: %w", userID, err)
	}

	views := make([]AttemptView, len(summaries))
	for i, a := range summaries {
		responses := a.Responses
		if responses == nil {
			responses = []domain.Response{}
		}
		views[i] = AttemptView{
			ID:          a.ID,
			QuestionSet: a.QuestionSet,
			Score:       a.Score,
			Total:       a.Total,
			Percentage:  stats.Percent(a.Ratio()),
			AttemptedAt: a.SubmittedAt,
			Responses:   responses,
		}
	}
	return History{Attempts: views, TotalAttempts: len(views)}, nil
}

func (s *Service) answerKey(ctx context.Context, setID uuid.UUID) (grading.AnswerKey, error) {
	if s.cache != nil {
		key, err := s.cache.Get(ctx, setID)
		if err != nil {
			s.logger.Warn().Err(err).Str("question_set_id", setID.String()).Msg("answer key cache read failed")
		}
		if key != nil {
			s.metrics.KeyCache(true)
			return key, nil
		}
		s.metrics.KeyCache(false)
	}

	set, err := s.sets.GetQuestionSet(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("get question set %s: %w", setID, err)
	}
	key := grading.NewAnswerKey(set.Questions)

	if s.cache != nil {
		if err := s.cache.Set(ctx, setID, key); err != nil {
			s.logger.Warn().Err(err).Str("question_set_id", setID.String()).Msg("answer key cache write failed")
		}
	}
	return key, nil
}

func idOrNew(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}
