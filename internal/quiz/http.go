package quiz

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizset-service/internal/auth"
	"github.com/gokatarajesh/quizset-service/internal/domain"
	httperrors "github.com/gokatarajesh/quizset-service/pkg/http/errors"
)

const maxBodyBytes = 1 << 20

// HTTPHandlers provides REST endpoints for question sets and attempts.
type HTTPHandlers struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for quiz endpoints.
func NewHTTPHandlers(svc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		svc:    svc,
		logger: logger.With().Str("component", "quiz_http").Logger(),
	}
}

// ListQuestionSets handles GET /v1/question-sets
func (h *HTTPHandlers) ListQuestionSets(w http.ResponseWriter, r *http.Request) {
	sets, err := h.svc.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list question sets failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuestionSetFailed, "Failed to list question sets")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"questionSets": sets,
	})
}

// GetQuestionSet handles GET /v1/question-sets/{id}
func (h *HTTPHandlers) GetQuestionSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	set, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.respondSetError(w, err, "Failed to load question set")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, set)
}

// CreateQuestionSet handles POST /v1/question-sets (admin only)
func (h *HTTPHandlers) CreateQuestionSet(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req CreateQuestionSetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	set, err := h.svc.Create(r.Context(), claims.UserID, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuestionSet) {
			httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidQuestionSet, "Title is required", "title")
			return
		}
		h.logger.Error().Err(err).Msg("create question set failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuestionSetFailed, "Failed to create question set")
		return
	}

	httperrors.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Question set created successfully",
		"questionSet": set,
	})
}

// DeleteQuestionSet handles DELETE /v1/question-sets/{id} (admin only)
func (h *HTTPHandlers) DeleteQuestionSet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.respondSetError(w, err, "Failed to delete question set")
		return
	}
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Question set deleted successfully",
	})
}

// SubmitAttempt handles POST /v1/attempts
func (h *HTTPHandlers) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	if req.QuestionSet == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "questionSet is required", "questionSet")
		return
	}
	setID, err := uuid.Parse(req.QuestionSet)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "questionSet must be a valid id", "questionSet")
		return
	}

	result, err := h.svc.Submit(r.Context(), claims.UserID, setID, req.Responses)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrQuestionSetNotFound):
			httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionSetNotFound, "Question set not found")
		case errors.Is(err, ErrTooManyResponses):
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "Too many responses", "responses")
		default:
			h.logger.Error().Err(err).Str("question_set_id", setID.String()).Msg("submit attempt failed")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSubmitFailed, "Failed to grade attempt")
		}
		return
	}

	h.logger.Info().
		Str("user_id", claims.UserID.String()).
		Str("question_set_id", setID.String()).
		Int("score", result.Score).
		Int("total", result.Total).
		Msg("attempt graded")

	httperrors.RespondJSON(w, http.StatusCreated, result)
}

// ListAttempts handles GET /v1/users/{userId}/attempts
func (h *HTTPHandlers) ListAttempts(w http.ResponseWriter, r *http.Request) {
	target, ok := auth.ViewTarget(w, r)
	if !ok {
		return
	}

	history, err := h.svc.History(r.Context(), target)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", target.String()).Msg("list attempts failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeAttemptsFailed, "Error retrieving quiz attempts")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Quiz attempts retrieved successfully",
		"attempts":      history.Attempts,
		"totalAttempts": history.TotalAttempts,
	})
}

func (h *HTTPHandlers) respondSetError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, domain.ErrQuestionSetNotFound) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuestionSetNotFound, "Question set not found")
		return
	}
	h.logger.Error().Err(err).Msg(message)
	httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuestionSetFailed, message)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "Invalid question set id", "id")
		return uuid.Nil, false
	}
	return id, true
}
