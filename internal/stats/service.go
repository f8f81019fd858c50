package stats

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizset-service/internal/auth"
	"github.com/gokatarajesh/quizset-service/internal/domain"
	httperrors "github.com/gokatarajesh/quizset-service/pkg/http/errors"
)

// AttemptLister returns a user's graded attempts.
type AttemptLister interface {
	ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error)
}

// UserGetter reads a single directory entry.
type UserGetter interface {
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
}

// Service loads attempts and folds them into UserStats.
type Service struct {
	attempts AttemptLister
	users    UserGetter
}

func NewService(attempts AttemptLister, users UserGetter) *Service {
	return &Service{attempts: attempts, users: users}
}

// ForUser returns aggregate statistics for userID. It fails with
// domain.ErrUserNotFound when the user is not in the directory.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) (UserStats, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return UserStats{}, fmt.Errorf("get user %s: %w", userID, err)
	}

	attempts, err := s.attempts.ListAttempts(ctx, domain.AttemptFilter{UserID: &userID})
	if err != nil {
		return UserStats{}, fmt.Errorf("list attempts for %s: %w", userID, err)
	}
	return Compute(attempts), nil
}

// HTTPHandler serves per-user statistics.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "stats_http").Logger(),
	}
}

// HandleGet handles GET /v1/users/{userId}/stats
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	target, ok := auth.ViewTarget(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.ForUser(r.Context(), target)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeUserNotFound, "User not found")
			return
		}
		h.logger.Error().Err(err).Str("user_id", target.String()).Msg("stats computation failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeStatsFailed, "Error retrieving quiz statistics")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Quiz statistics retrieved successfully",
		"stats":   stats,
	})
}
