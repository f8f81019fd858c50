package leaderboard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizset-service/internal/domain"
)

// SnapshotStore persists and reads leaderboard snapshots.
type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, snap domain.LeaderboardSnapshot) error
	LatestSnapshot(ctx context.Context, timeframe, sortBy string) (domain.LeaderboardSnapshot, error)
}

// SnapshotWorker periodically persists the default leaderboards so the HTTP
// handler has something to serve when live computation fails.
type SnapshotWorker struct {
	svc      *Service
	store    SnapshotStore
	logger   zerolog.Logger
	interval time.Duration
	topN     int
}

// NewSnapshotWorker builds a worker that stores the top MaxLimit rows, so a
// fallback can answer any limit a request is allowed to ask for.
func NewSnapshotWorker(svc *Service, store SnapshotStore, interval time.Duration, logger zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SnapshotWorker{
		svc:      svc,
		store:    store,
		logger:   logger.With().Str("component", "leaderboard_snapshot_worker").Logger(),
		interval: interval,
		topN:     MaxLimit,
	}
}

// Run blocks until context cancellation.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	if w.svc == nil || w.store == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *SnapshotWorker) tick(ctx context.Context) {
	for _, tf := range defaultTimeframes {
		if _, err := w.snapshot(ctx, tf); err != nil {
			w.logger.Warn().Err(err).Str("timeframe", string(tf)).Msg("snapshot failed")
		}
	}
}

// snapshot persists the current standings for tf and reports whether a new
// row was written. Unchanged standings are skipped by comparing source hashes.
// Empty standings are stored too so a stale board never outlives its attempts.
func (w *SnapshotWorker) snapshot(ctx context.Context, tf Timeframe) (bool, error) {
	entries, err := w.svc.Top(ctx, Filters{Timeframe: tf, SortBy: SortByAverage, Limit: w.topN})
	if err != nil {
		return false, err
	}

	data, err := json.Marshal(toWSEntries(entries))
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	latest, err := w.store.LatestSnapshot(ctx, string(tf), string(SortByAverage))
	switch {
	case err == nil && latest.SourceHash == hash:
		return false, nil
	case err != nil && !errors.Is(err, domain.ErrSnapshotNotFound):
		return false, err
	}

	now := time.Now().UTC()
	snap := domain.LeaderboardSnapshot{
		Timeframe:   string(tf),
		SortBy:      string(SortByAverage),
		GeneratedAt: now,
		Entries:     data,
		SourceHash:  hash,
	}
	if err := w.store.InsertSnapshot(ctx, snap); err != nil {
		return false, err
	}

	w.logger.Info().
		Str("timeframe", string(tf)).
		Int("entries", len(entries)).
		Time("generated_at", now).
		Msg("leaderboard snapshot persisted")

	return true, nil
}
