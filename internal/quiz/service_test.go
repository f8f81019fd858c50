package quiz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizset-service/internal/domain"
	"github.com/gokatarajesh/quizset-service/internal/grading"
	"github.com/gokatarajesh/quizset-service/internal/metrics"
)

type mockSets struct {
	mock.Mock
}

func (m *mockSets) GetQuestionSet(ctx context.Context, id uuid.UUID) (domain.QuestionSet, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.QuestionSet), args.Error(1)
}

func (m *mockSets) ListQuestionSets(ctx context.Context) ([]domain.QuestionSetSummary, error) {
	args := m.Called(ctx)
	sets, _ := args.Get(0).([]domain.QuestionSetSummary)
	return sets, args.Error(1)
}

func (m *mockSets) CreateQuestionSet(ctx context.Context, set domain.QuestionSet) (domain.QuestionSet, error) {
	args := m.Called(ctx, set)
	if fn, ok := args.Get(0).(func(context.Context, domain.QuestionSet) domain.QuestionSet); ok {
		return fn(ctx, set), args.Error(1)
	}
	return args.Get(0).(domain.QuestionSet), args.Error(1)
}

func (m *mockSets) DeleteQuestionSet(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockAttempts struct {
	mock.Mock
}

func (m *mockAttempts) CreateAttempt(ctx context.Context, attempt domain.NewAttempt) (domain.Attempt, error) {
	args := m.Called(ctx, attempt)
	return args.Get(0).(domain.Attempt), args.Error(1)
}

func (m *mockAttempts) ListAttemptSummaries(ctx context.Context, userID uuid.UUID) ([]domain.AttemptSummary, error) {
	args := m.Called(ctx, userID)
	summaries, _ := args.Get(0).([]domain.AttemptSummary)
	return summaries, args.Error(1)
}

type mockLeaderboard struct {
	mock.Mock
}

func (m *mockLeaderboard) RecordAttempt(ctx context.Context, attempt domain.Attempt) error {
	return m.Called(ctx, attempt).Error(0)
}

func (m *mockLeaderboard) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func sampleSet() domain.QuestionSet {
	return domain.QuestionSet{
		ID:    uuid.New(),
		Title: "Go basics",
		Questions: []domain.Question{
			{ID: "q1", Text: "Pick c1", Choices: []domain.Choice{
				{ID: "c1", Text: "one", IsCorrectAnswer: true},
				{ID: "c2", Text: "two"},
			}},
			{ID: "q2", Text: "Pick both", Choices: []domain.Choice{
				{ID: "a", Text: "A", IsCorrectAnswer: true},
				{ID: "b", Text: "B", IsCorrectAnswer: true},
				{ID: "c", Text: "C"},
			}},
		},
	}
}

func newKeyCache(t *testing.T) (*miniredis.Miniredis, *KeyCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewKeyCache(client, time.Minute)
}

func TestSubmitGradesAndStoresAttempt(t *testing.T) {
	set := sampleSet()
	user := uuid.New()
	sets := &mockSets{}
	attempts := &mockAttempts{}
	lb := &mockLeaderboard{}
	sets.On("GetQuestionSet", mock.Anything, set.ID).Return(set, nil)

	responses := []domain.Response{
		{QuestionID: "q1", SelectedChoiceIDs: []string{"c1"}},
		{QuestionID: "q2", SelectedChoiceIDs: []string{"a"}},
		{QuestionID: "ghost", SelectedChoiceIDs: []string{"x"}},
	}
	stored := domain.Attempt{ID: uuid.New(), QuestionSetID: set.ID, UserID: user, Score: 1, Total: 2}
	attempts.On("CreateAttempt", mock.Anything, domain.NewAttempt{
		QuestionSetID: set.ID,
		UserID:        user,
		Responses:     responses,
		Score:         1,
		Total:         2,
	}).Return(stored, nil)
	lb.On("RecordAttempt", mock.Anything, stored).Return(nil)

	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(sets, attempts, nil, lb, m, zerolog.Nop(), ServiceOptions{})
	result, err := svc.Submit(context.Background(), user, set.ID, responses)

	require.NoError(t, err)
	assert.Equal(t, stored.ID, result.AttemptID)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Details, 2)
	assert.True(t, result.Details[0].IsCorrect)
	assert.False(t, result.Details[1].IsCorrect)
	attempts.AssertExpectations(t)
	lb.AssertExpectations(t)
}

func TestSubmitUsesCachedKey(t *testing.T) {
	set := sampleSet()
	_, cache := newKeyCache(t)
	sets := &mockSets{}
	attempts := &mockAttempts{}
	sets.On("GetQuestionSet", mock.Anything, set.ID).Return(set, nil).Once()
	attempts.On("CreateAttempt", mock.Anything, mock.Anything).Return(domain.Attempt{ID: uuid.New()}, nil)

	svc := NewService(sets, attempts, cache, nil, nil, zerolog.Nop(), ServiceOptions{})
	responses := []domain.Response{{QuestionID: "q2", SelectedChoiceIDs: []string{"b", "a"}}}

	first, err := svc.Submit(context.Background(), uuid.New(), set.ID, responses)
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), uuid.New(), set.ID, responses)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Score)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Total, second.Total)
	sets.AssertNumberOfCalls(t, "GetQuestionSet", 1)
}

func TestSubmitUnknownSet(t *testing.T) {
	sets := &mockSets{}
	attempts := &mockAttempts{}
	id := uuid.New()
	sets.On("GetQuestionSet", mock.Anything, id).Return(domain.QuestionSet{}, domain.ErrQuestionSetNotFound)

	svc := NewService(sets, attempts, nil, nil, nil, zerolog.Nop(), ServiceOptions{})
	_, err := svc.Submit(context.Background(), uuid.New(), id, nil)

	assert.ErrorIs(t, err, domain.ErrQuestionSetNotFound)
	attempts.AssertNotCalled(t, "CreateAttempt", mock.Anything, mock.Anything)
}

func TestSubmitEmptyResponses(t *testing.T) {
	set := sampleSet()
	sets := &mockSets{}
	attempts := &mockAttempts{}
	sets.On("GetQuestionSet", mock.Anything, set.ID).Return(set, nil)
	attempts.On("CreateAttempt", mock.Anything, mock.MatchedBy(func(a domain.NewAttempt) bool {
		return a.Responses != nil && len(a.Responses) == 0 && a.Score == 0 && a.Total == 0
	})).Return(domain.Attempt{ID: uuid.New()}, nil)

	svc := NewService(sets, attempts, nil, nil, nil, zerolog.Nop(), ServiceOptions{})
	result, err := svc.Submit(context.Background(), uuid.New(), set.ID, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.NotNil(t, result.Details)
	attempts.AssertExpectations(t)
}

func TestSubmitRejectsOversizedSubmission(t *testing.T) {
	svc := NewService(&mockSets{}, &mockAttempts{}, nil, nil, nil, zerolog.Nop(), ServiceOptions{MaxResponses: 1})
	_, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), make([]domain.Response, 2))
	assert.ErrorIs(t, err, ErrTooManyResponses)
}

func TestSubmitStoreFailure(t *testing.T) {
	set := sampleSet()
	sets := &mockSets{}
	attempts := &mockAttempts{}
	lb := &mockLeaderboard{}
	boom := errors.New("insert failed")
	sets.On("GetQuestionSet", mock.Anything, set.ID).Return(set, nil)
	attempts.On("CreateAttempt", mock.Anything, mock.Anything).Return(domain.Attempt{}, boom)

	svc := NewService(sets, attempts, nil, lb, nil, zerolog.Nop(), ServiceOptions{})
	_, err := svc.Submit(context.Background(), uuid.New(), set.ID, nil)

	assert.ErrorIs(t, err, boom)
	lb.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything)
}

func TestGetStripsCorrectFlags(t *testing.T) {
	set := sampleSet()
	sets := &mockSets{}
	sets.On("GetQuestionSet", mock.Anything, set.ID).Return(set, nil)

	svc := NewService(sets, &mockAttempts{}, nil, nil, nil, zerolog.Nop(), ServiceOptions{})
	view, err := svc.Get(context.Background(), set.ID)

	require.NoError(t, err)
	assert.Equal(t, set.Title, view.Title)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, []PublicChoice{{ID: "c1", Text: "one"}, {ID: "c2", Text: "two"}}, view.Questions[0].Choices)
}

func TestCreateGeneratesIDs(t *testing.T) {
	creator := uuid.New()
	sets := &mockSets{}
	sets.On("CreateQuestionSet", mock.Anything, mock.Anything).
		Return(func(_ context.Context, set domain.QuestionSet) domain.QuestionSet { return set }, nil)

	svc := NewService(sets, &mockAttempts{}, nil, nil, nil, zerolog.Nop(), ServiceOptions{})
	set, err := svc.Create(context.Background(), creator, CreateQuestionSetRequest{
		Title: "  Trivia ",
		Questions: []CreateQuestionRequest{
			{ID: "keep", Text: "Q", Choices: []CreateChoiceRequest{{Text: "x", IsCorrectAnswer: true}, {ID: "y", Text: "y"}}},
			{Text: "Q2"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Trivia", set.Title)
	assert.Equal(t, creator, set.CreatedBy)
	assert.NotEqual(t, uuid.Nil, set.ID)
	require.Len(t, set.Questions, 2)
	assert.Equal(t, "keep", set.Questions[0].ID)
	assert.NotEmpty(t, set.Questions[0].Choices[0].ID)
	assert.Equal(t, "y", set.Questions[0].Choices[1].ID)
	assert.NotEmpty(t, set.Questions[1].ID)
	assert.NotNil(t, set.Questions[1].Choices)
}

func TestCreateRequiresTitle(t *testing.T) {
	sets := &mockSets{}
	svc := NewService(sets, &mockAttempts{}, nil, nil, nil, zerolog.Nop(), ServiceOptions{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateQuestionSetRequest{Title: "   "})

	assert.ErrorIs(t, err, domain.ErrInvalidQuestionSet)
	sets.AssertNotCalled(t, "CreateQuestionSet", mock.Anything, mock.Anything)
}

func TestDeleteInvalidatesCaches(t *testing.T) {
	set := sampleSet()
	mr, cache := newKeyCache(t)
	require.NoError(t, cache.Set(context.Background(), set.ID, grading.NewAnswerKey(set.Questions)))
	require.True(t, mr.Exists("answerkey:"+set.ID.String()))

	sets := &mockSets{}
	lb := &mockLeaderboard{}
	sets.On("DeleteQuestionSet", mock.Anything, set.ID).Return(nil)
	lb.On("Invalidate", mock.Anything).Return(nil)

	svc := NewService(sets, &mockAttempts{}, cache, lb, nil, zerolog.Nop(), ServiceOptions{})
	require.NoError(t, svc.Delete(context.Background(), set.ID))

	assert.False(t, mr.Exists("answerkey:"+set.ID.String()))
	lb.AssertExpectations(t)
}

func TestDeleteUnknownSet(t *testing.T) {
	id := uuid.New()
	sets := &mockSets{}
	sets.On("DeleteQuestionSet", mock.Anything, id).Return(domain.ErrQuestionSetNotFound)

	svc := NewService(sets, &mockAttempts{}, nil, nil, nil, zerolog.Nop(), ServiceOptions{})
	err := svc.Delete(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrQuestionSetNotFound)
}

func TestHistory(t *testing.T) {
	user := uuid.New()
	now := time.Now().UTC()
	setRef := domain.QuestionSetRef{ID: uuid.New(), Title: "Go basics"}
	attempts := &mockAttempts{}
	attempts.On("ListAttemptSummaries", mock.Anything, user).Return([]domain.AttemptSummary{
		{Attempt: domain.Attempt{ID: uuid.New(), UserID: user, Score: 2, Total: 3, SubmittedAt: now}, QuestionSet: setRef},
		{Attempt: domain.Attempt{ID: uuid.New(), UserID: user, Score: 0, Total: 0, SubmittedAt: now.Add(-time.Hour)}, QuestionSet: setRef},
	}, nil)

	svc := NewService(&mockSets{}, attempts, nil, nil, nil, zerolog.Nop(), ServiceOptions{})
	history, err := svc.History(context.Background(), user)

	require.NoError(t, err)
	assert.Equal(t, 2, history.TotalAttempts)
	assert.Equal(t, 67, history.Attempts[0].Percentage)
	assert.Equal(t, 0, history.Attempts[1].Percentage)
	assert.Equal(t, setRef, history.Attempts[0].QuestionSet)
	assert.NotNil(t, history.Attempts[1].Responses)
}

func TestKeyCacheRoundTrip(t *testing.T) {
	_, cache := newKeyCache(t)
	ctx := context.Background()
	id := uuid.New()

	missing, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, missing)

	key := grading.NewAnswerKey(sampleSet().Questions)
	require.NoError(t, cache.Set(ctx, id, key))

	got, err := cache.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	empty := grading.NewAnswerKey(nil)
	require.NoError(t, cache.Set(ctx, id, empty))
	got, err = cache.Get(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
