package server

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizset-service/internal/auth"
	"github.com/gokatarajesh/quizset-service/internal/config"
	"github.com/gokatarajesh/quizset-service/internal/domain"
	"github.com/gokatarajesh/quizset-service/internal/logging"
	httperrors "github.com/gokatarajesh/quizset-service/pkg/http/errors"
)

// WSUpgrader handles WebSocket upgrades. NewHTTPServer restricts its origin
// check to the configured CORS origins.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin:     originChecker(nil),
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Pinger is a dependency checked by /v1/ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Routes holds the API handlers mounted by NewHTTPServer. Nil handlers are
// left unmounted.
type Routes struct {
	ListQuestionSets  http.HandlerFunc
	GetQuestionSet    http.HandlerFunc
	CreateQuestionSet http.HandlerFunc
	DeleteQuestionSet http.HandlerFunc
	SubmitAttempt     http.HandlerFunc
	ListAttempts      http.HandlerFunc
	UserStats         http.HandlerFunc
	Leaderboard       http.HandlerFunc
	LeaderboardWS     http.HandlerFunc
}

// Options carries the infrastructure the server needs besides its routes.
type Options struct {
	Validator auth.TokenValidator
	Pingers   map[string]Pinger
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
}

// NewHTTPServer wires health, metrics and the authenticated API routes.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, opts Options, routes Routes) *http.Server {
	WSUpgrader.CheckOrigin = originChecker(cfg.CORS.AllowedOrigins)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), opts.Pingers); err != nil {
			reqLogger := logging.FromContext(r.Context())
			reqLogger.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "Upstream dependency unavailable")
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, map[string]bool{"pong": true})
	})

	authn := auth.AuthMiddleware(opts.Validator, logger)
	user := func(h http.HandlerFunc) http.Handler {
		return authn(auth.RequireAuth(h))
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authn(auth.RequireRole(domain.RoleAdmin)(h))
	}

	mount := func(pattern string, h http.HandlerFunc, wrap func(http.HandlerFunc) http.Handler) {
		if h != nil {
			mux.Handle(pattern, wrap(h))
		}
	}
	mount("GET /v1/question-sets", routes.ListQuestionSets, user)
	mount("GET /v1/question-sets/{id}", routes.GetQuestionSet, user)
	mount("POST /v1/question-sets", routes.CreateQuestionSet, admin)
	mount("DELETE /v1/question-sets/{id}", routes.DeleteQuestionSet, admin)
	mount("POST /v1/attempts", routes.SubmitAttempt, user)
	mount("GET /v1/users/{userId}/attempts", routes.ListAttempts, user)
	mount("GET /v1/users/{userId}/stats", routes.UserStats, user)
	mount("GET /v1/leaderboard", routes.Leaderboard, user)
	mount("GET /ws/leaderboard", routes.LeaderboardWS, user)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: requestLogger(logger)(corsMiddleware(cfg.CORS)(mux)),
	}
}

func pingDependencies(ctx context.Context, pingers map[string]Pinger) error {
	var errs []error
	for name, p := range pingers {
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, errors.New(name+": "+err.Error()))
		}
	}
	return errors.Join(errs...)
}

// originChecker allows requests without an Origin header, any origin when
// allowed contains "*", and otherwise exact matches.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

func corsMiddleware(cfg config.CORS) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)
	allowed := originChecker(cfg.AllowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed(r) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
					h.Set("Access-Control-Allow-Methods", methods)
					h.Set("Access-Control-Allow-Headers", headers)
					h.Set("Access-Control-Max-Age", maxAge)
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger puts a request-scoped logger into the context and logs the
// request once it completes.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()
			next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
			reqLogger.Debug().Dur("duration", time.Since(start)).Msg("request handled")
		})
	}
}
