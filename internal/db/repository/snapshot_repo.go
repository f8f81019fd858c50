package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/quizset-service/internal/domain"
)

const (
	insertSnapshotSQL = `
INSERT INTO leaderboard_snapshots (time_window, sort_by, generated_at, entries, source_hash)
VALUES ($1, $2, $3, $4, $5)`

	latestSnapshotSQL = `
SELECT id, time_window, sort_by, generated_at, entries, source_hash
FROM leaderboard_snapshots
WHERE time_window = $1 AND sort_by = $2
ORDER BY generated_at DESC, id DESC
LIMIT 1`
)

// SnapshotRepository persists computed leaderboards.
type SnapshotRepository struct {
	db DBTX
}

func NewSnapshotRepository(db DBTX) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// InsertSnapshot appends a snapshot row.
func (r *SnapshotRepository) InsertSnapshot(ctx context.Context, snap domain.LeaderboardSnapshot) error {
	_, err := r.db.Exec(ctx, insertSnapshotSQL,
		snap.Timeframe, snap.SortBy, snap.GeneratedAt, snap.Entries, snap.SourceHash)
	if err != nil {
		return fmt.Errorf("insert leaderboard snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot for the filter pair.
func (r *SnapshotRepository) LatestSnapshot(ctx context.Context, timeframe, sortBy string) (domain.LeaderboardSnapshot, error) {
	var (
		snap        domain.LeaderboardSnapshot
		generatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, latestSnapshotSQL, timeframe, sortBy).
		Scan(&snap.ID, &snap.Timeframe, &snap.SortBy, &generatedAt, &snap.Entries, &snap.SourceHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LeaderboardSnapshot{}, domain.ErrSnapshotNotFound
		}
		return domain.LeaderboardSnapshot{}, fmt.Errorf("query leaderboard snapshot: %w", err)
	}
	snap.GeneratedAt = generatedAt.Time
	return snap, nil
}
