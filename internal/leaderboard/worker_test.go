package leaderboard

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizset-service/internal/domain"
	ws "github.com/gokatarajesh/quizset-service/pkg/http/ws"
)

type mockSnapshots struct {
	mock.Mock
}

func (m *mockSnapshots) InsertSnapshot(ctx context.Context, snap domain.LeaderboardSnapshot) error {
	return m.Called(ctx, snap).Error(0)
}

func (m *mockSnapshots) LatestSnapshot(ctx context.Context, timeframe, sortBy string) (domain.LeaderboardSnapshot, error) {
	args := m.Called(ctx, timeframe, sortBy)
	return args.Get(0).(domain.LeaderboardSnapshot), args.Error(1)
}

func newWorkerFixture(t *testing.T) (*Service, uuid.UUID) {
	t.Helper()
	u := uuid.New()
	attempts := &mockAttempts{}
	users := &mockUsers{}
	attempts.On("ListAttempts", mock.Anything, mock.Anything).
		Return([]domain.Attempt{attemptAt(u, 3, 4, refNow)}, nil)
	users.On("LookupUsers", mock.Anything, []uuid.UUID{u}).Return(directory(u), nil)
	return NewService(attempts, users, nil, nil, zerolog.Nop(), ServiceOptions{Now: fixedNow}), u
}

func TestSnapshotWorkerPersistsNewStandings(t *testing.T) {
	svc, u := newWorkerFixture(t)
	store := &mockSnapshots{}
	store.On("LatestSnapshot", mock.Anything, "week", "average").
		Return(domain.LeaderboardSnapshot{}, domain.ErrSnapshotNotFound)

	var saved domain.LeaderboardSnapshot
	store.On("InsertSnapshot", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(domain.LeaderboardSnapshot) }).
		Return(nil)

	w := NewSnapshotWorker(svc, store, time.Minute, zerolog.Nop())
	written, err := w.snapshot(context.Background(), TimeframeWeek)

	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, "week", saved.Timeframe)
	assert.Equal(t, "average", saved.SortBy)
	assert.Len(t, saved.SourceHash, 64)

	var entries []ws.LeaderboardEntry
	require.NoError(t, json.Unmarshal(saved.Entries, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, u.String(), entries[0].UserID)
	assert.Equal(t, 75.0, entries[0].AveragePercentage)
}

func TestSnapshotWorkerSkipsUnchangedStandings(t *testing.T) {
	svc, _ := newWorkerFixture(t)
	store := &mockSnapshots{}

	var saved domain.LeaderboardSnapshot
	store.On("LatestSnapshot", mock.Anything, "all", "average").
		Return(domain.LeaderboardSnapshot{}, domain.ErrSnapshotNotFound).Once()
	store.On("InsertSnapshot", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(domain.LeaderboardSnapshot) }).
		Return(nil).Once()

	w := NewSnapshotWorker(svc, store, time.Minute, zerolog.Nop())
	written, err := w.snapshot(context.Background(), TimeframeAll)
	require.NoError(t, err)
	require.True(t, written)

	store.On("LatestSnapshot", mock.Anything, "all", "average").Return(saved, nil).Once()
	written, err = w.snapshot(context.Background(), TimeframeAll)

	require.NoError(t, err)
	assert.False(t, written)
	store.AssertNumberOfCalls(t, "InsertSnapshot", 1)
}

func TestSnapshotWorkerPersistsEmptyStandings(t *testing.T) {
	attempts := &mockAttempts{}
	attempts.On("ListAttempts", mock.Anything, mock.Anything).Return([]domain.Attempt{}, nil)
	svc := NewService(attempts, &mockUsers{}, nil, nil, zerolog.Nop(), ServiceOptions{Now: fixedNow})

	stale := domain.LeaderboardSnapshot{
		Timeframe:  "month",
		SortBy:     "average",
		Entries:    []byte(`[{"rank":1}]`),
		SourceHash: "previous",
	}
	store := &mockSnapshots{}
	store.On("LatestSnapshot", mock.Anything, "month", "average").Return(stale, nil).Once()

	var saved domain.LeaderboardSnapshot
	store.On("InsertSnapshot", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(domain.LeaderboardSnapshot) }).
		Return(nil).Once()

	w := NewSnapshotWorker(svc, store, time.Minute, zerolog.Nop())
	written, err := w.snapshot(context.Background(), TimeframeMonth)

	require.NoError(t, err)
	assert.True(t, written)
	assert.JSONEq(t, `[]`, string(saved.Entries))
	assert.NotEqual(t, stale.SourceHash, saved.SourceHash)

	store.On("LatestSnapshot", mock.Anything, "month", "average").Return(saved, nil).Once()
	written, err = w.snapshot(context.Background(), TimeframeMonth)

	require.NoError(t, err)
	assert.False(t, written)
	store.AssertNumberOfCalls(t, "InsertSnapshot", 1)
}

func TestSnapshotWorkerStoresMaxLimitRows(t *testing.T) {
	ids := make([]uuid.UUID, MaxLimit+20)
	rows := make([]domain.Attempt, 0, len(ids))
	for i := range ids {
		ids[i] = uuid.New()
		rows = append(rows, attemptAt(ids[i], i%5, 5, refNow))
	}
	attempts := &mockAttempts{}
	users := &mockUsers{}
	attempts.On("ListAttempts", mock.Anything, mock.Anything).Return(rows, nil)
	users.On("LookupUsers", mock.Anything, mock.Anything).Return(directory(ids...), nil)
	svc := NewService(attempts, users, nil, nil, zerolog.Nop(), ServiceOptions{Now: fixedNow})

	store := &mockSnapshots{}
	store.On("LatestSnapshot", mock.Anything, "all", "average").
		Return(domain.LeaderboardSnapshot{}, domain.ErrSnapshotNotFound)
	var saved domain.LeaderboardSnapshot
	store.On("InsertSnapshot", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(domain.LeaderboardSnapshot) }).
		Return(nil)

	w := NewSnapshotWorker(svc, store, time.Minute, zerolog.Nop())
	_, err := w.snapshot(context.Background(), TimeframeAll)
	require.NoError(t, err)

	var entries []ws.LeaderboardEntry
	require.NoError(t, json.Unmarshal(saved.Entries, &entries))
	assert.Len(t, entries, MaxLimit)
}

func TestSnapshotWorkerRunStopsOnCancel(t *testing.T) {
	svc, _ := newWorkerFixture(t)
	store := &mockSnapshots{}
	store.On("LatestSnapshot", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.LeaderboardSnapshot{}, domain.ErrSnapshotNotFound)
	inserted := make(chan struct{}, len(defaultTimeframes))
	store.On("InsertSnapshot", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { inserted <- struct{}{} }).
		Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewSnapshotWorker(svc, store, time.Hour, zerolog.Nop())
	go func() { done <- w.Run(ctx) }()

	for range defaultTimeframes {
		select {
		case <-inserted:
		case <-time.After(2 * time.Second):
			t.Fatal("snapshot not persisted on first tick")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
