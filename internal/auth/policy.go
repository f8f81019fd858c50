package auth

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/gokatarajesh/quizset-service/internal/auth/jwt"
	"github.com/gokatarajesh/quizset-service/internal/domain"
	httperrors "github.com/gokatarajesh/quizset-service/pkg/http/errors"
)

// SelfAlias lets callers address their own records without knowing their id.
const SelfAlias = "me"

// ResolveTarget maps a user path parameter to a user id.
func ResolveTarget(claims *jwt.Claims, param string) (uuid.UUID, error) {
	if param == SelfAlias {
		return claims.UserID, nil
	}
	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse user id %q: %w", param, err)
	}
	return id, nil
}

// CanViewUser reports whether the caller may read target's attempts and stats.
// Only the user themselves or an admin may; professionals get no extra access.
func CanViewUser(claims *jwt.Claims, target uuid.UUID) bool {
	if claims == nil {
		return false
	}
	return claims.UserID == target || claims.Role == domain.RoleAdmin
}

// ViewTarget resolves the {userId} path value of r and checks that the caller
// may read it. On failure the error response is already written.
func ViewTarget(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return uuid.Nil, false
	}

	target, err := ResolveTarget(claims, r.PathValue("userId"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidUserID, "Invalid user id", "userId")
		return uuid.Nil, false
	}

	if !CanViewUser(claims, target) {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "Not allowed to view this user")
		return uuid.Nil, false
	}
	return target, true
}
