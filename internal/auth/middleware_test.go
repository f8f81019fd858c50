package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/quizset-service/internal/auth/jwt"
	"github.com/gokatarajesh/quizset-service/internal/domain"
)

func newManager() *jwt.Manager {
	return jwt.NewManager(jwt.TokenConfig{AccessSecret: []byte("test-secret")})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware_PassesAnonymousThrough(t *testing.T) {
	h := AuthMiddleware(newManager(), zerolog.Nop())(RequireAuth(okHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RejectsMalformedHeader(t *testing.T) {
	h := AuthMiddleware(newManager(), zerolog.Nop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_InjectsClaims(t *testing.T) {
	mgr := newManager()
	id := uuid.New()
	token, err := mgr.GenerateAccessToken(jwt.Subject{ID: id, Role: domain.RoleUser})
	require.NoError(t, err)

	var seen uuid.UUID
	h := AuthMiddleware(mgr, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		seen = claims.UserID
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, id, seen)

	seen = uuid.Nil
	req = httptest.NewRequest(http.MethodGet, "/ws?access_token="+token, nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, id, seen)
}

func TestRequireRole(t *testing.T) {
	mgr := newManager()
	h := AuthMiddleware(mgr, zerolog.Nop())(RequireRole(domain.RoleAdmin)(okHandler()))

	for role, want := range map[string]int{
		domain.RoleAdmin:        http.StatusNoContent,
		domain.RoleUser:         http.StatusForbidden,
		domain.RoleProfessional: http.StatusForbidden,
	} {
		token, err := mgr.GenerateAccessToken(jwt.Subject{ID: uuid.New(), Role: role})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}

func TestCanViewUser(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	assert.True(t, CanViewUser(&jwt.Claims{UserID: self, Role: domain.RoleUser}, self))
	assert.False(t, CanViewUser(&jwt.Claims{UserID: self, Role: domain.RoleUser}, other))
	assert.False(t, CanViewUser(&jwt.Claims{UserID: self, Role: domain.RoleProfessional}, other))
	assert.True(t, CanViewUser(&jwt.Claims{UserID: self, Role: domain.RoleAdmin}, other))
	assert.False(t, CanViewUser(nil, other))
}

func TestResolveTarget(t *testing.T) {
	self := uuid.New()
	claims := &jwt.Claims{UserID: self}

	got, err := ResolveTarget(claims, SelfAlias)
	require.NoError(t, err)
	assert.Equal(t, self, got)

	other := uuid.New()
	got, err = ResolveTarget(claims, other.String())
	require.NoError(t, err)
	assert.Equal(t, other, got)

	_, err = ResolveTarget(claims, "nope")
	assert.Error(t, err)
}

func TestViewTarget(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	tests := []struct {
		name   string
		claims *jwt.Claims
		param  string
		want   int
	}{
		{"anonymous", nil, SelfAlias, http.StatusUnauthorized},
		{"self alias", &jwt.Claims{UserID: self, Role: domain.RoleUser}, SelfAlias, http.StatusNoContent},
		{"bad id", &jwt.Claims{UserID: self, Role: domain.RoleUser}, "42", http.StatusBadRequest},
		{"other user", &jwt.Claims{UserID: self, Role: domain.RoleUser}, other.String(), http.StatusForbidden},
		{"admin", &jwt.Claims{UserID: self, Role: domain.RoleAdmin}, other.String(), http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /users/{userId}", func(w http.ResponseWriter, r *http.Request) {
				if _, ok := ViewTarget(w, r); ok {
					w.WriteHeader(http.StatusNoContent)
				}
			})

			req := httptest.NewRequest(http.MethodGet, "/users/"+tt.param, nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
