package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizset-service/internal/domain"
	httperrors "github.com/gokatarajesh/quizset-service/pkg/http/errors"
	ws "github.com/gokatarajesh/quizset-service/pkg/http/ws"
)

// Ranker is the read side of the leaderboard service.
type Ranker interface {
	Top(ctx context.Context, f Filters) ([]Entry, error)
}

// SnapshotReader returns the most recent persisted leaderboard.
type SnapshotReader interface {
	LatestSnapshot(ctx context.Context, timeframe, sortBy string) (domain.LeaderboardSnapshot, error)
}

// HTTPHandler exposes REST endpoints for leaderboard queries.
type HTTPHandler struct {
	svc       Ranker
	snapshots SnapshotReader
	logger    zerolog.Logger
	now       func() time.Time
}

// NewHTTPHandler constructs a leaderboard HTTP handler. snapshots may be nil.
func NewHTTPHandler(svc Ranker, snapshots SnapshotReader, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:       svc,
		snapshots: snapshots,
		logger:    logger.With().Str("component", "leaderboard_http").Logger(),
		now:       time.Now,
	}
}

// HandleGet responds with the ranked leaderboard.
// Route: GET /v1/leaderboard?timeframe=all|week|month|year&sortBy=average|total|quizzes&limit=50
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := ParseFilters(q.Get("timeframe"), q.Get("sortBy"), q.Get("limit"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidLeaderboardArgs, err.Error())
		return
	}

	ctx := r.Context()
	source := "live"
	entries, err := h.svc.Top(ctx, filters)
	var top []ws.LeaderboardEntry
	if err == nil {
		top = toWSEntries(entries)
	} else {
		h.logger.Warn().Err(err).
			Str("timeframe", string(filters.Timeframe)).
			Str("sort_by", string(filters.SortBy)).
			Msg("live leaderboard fetch failed")

		var ok bool
		top, ok = h.snapshotFallback(ctx, filters)
		if !ok {
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeLeaderboardFetchFailed, "Failed to fetch leaderboard")
			return
		}
		source = "snapshot"
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":     "Leaderboard retrieved successfully",
		"timeframe":   filters.Timeframe,
		"sortBy":      filters.SortBy,
		"limit":       filters.Limit,
		"leaderboard": top,
		"source":      source,
		"retrievedAt": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *HTTPHandler) snapshotFallback(ctx context.Context, f Filters) ([]ws.LeaderboardEntry, bool) {
	if h.snapshots == nil {
		return nil, false
	}
	snap, err := h.snapshots.LatestSnapshot(ctx, string(f.Timeframe), string(f.SortBy))
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			h.logger.Warn().Err(err).Str("timeframe", string(f.Timeframe)).Msg("snapshot fetch failed")
		}
		return nil, false
	}

	var entries []ws.LeaderboardEntry
	if err := json.Unmarshal(snap.Entries, &entries); err != nil {
		h.logger.Warn().Err(err).Msg("snapshot payload decode failed")
		return nil, false
	}
	if len(entries) > f.Limit {
		entries = entries[:f.Limit]
	}
	return entries, true
}
