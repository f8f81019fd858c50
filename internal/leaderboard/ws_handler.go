package leaderboard

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizset-service/internal/auth"
	"github.com/gokatarajesh/quizset-service/internal/metrics"
	"github.com/gokatarajesh/quizset-service/internal/server"
	httperrors "github.com/gokatarajesh/quizset-service/pkg/http/errors"
	ws "github.com/gokatarajesh/quizset-service/pkg/http/ws"
)

// WSHandler streams leaderboard updates to authenticated watchers.
type WSHandler struct {
	svc     Ranker
	hub     *ws.Hub
	metrics *metrics.Metrics
	logger  zerolog.Logger
	topN    int
}

// NewWSHandler wires the watcher endpoint to the hub fed by the Broadcaster.
func NewWSHandler(svc Ranker, hub *ws.Hub, m *metrics.Metrics, topN int, logger zerolog.Logger) *WSHandler {
	if topN <= 0 {
		topN = 10
	}
	return &WSHandler{
		svc:     svc,
		hub:     hub,
		metrics: m,
		logger:  logger.With().Str("component", "leaderboard_ws").Logger(),
		topN:    topN,
	}
}

// HandleWebSocket upgrades the request, sends the current standings and then
// relays every broadcast until the client disconnects.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	logger := h.logger.With().Str("user_id", claims.UserID.String()).Logger()
	c := ws.NewConnection(conn, logger)
	id := h.hub.Register(c)
	h.metrics.ConnectionOpened()
	defer func() {
		h.hub.Unregister(id)
		h.metrics.ConnectionClosed()
	}()

	go c.WritePump()

	if msg, ok := h.initialMessage(r.Context()); ok {
		if err := c.Send(msg); err != nil {
			logger.Warn().Err(err).Msg("initial leaderboard send failed")
		}
	}

	c.ReadPump(func(msg ws.Message) error {
		switch msg.Type {
		case ws.TypePing:
			return c.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
		default:
			reply, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{
				Code:    "unsupported_message",
				Message: "unsupported message type: " + msg.Type,
			})
			if err != nil {
				return err
			}
			reply.RequestID = msg.RequestID
			return c.Send(reply)
		}
	})
}

func (h *WSHandler) initialMessage(ctx context.Context) (ws.Message, bool) {
	f := Filters{Timeframe: TimeframeAll, SortBy: SortByAverage, Limit: h.topN}
	entries, err := h.svc.Top(ctx, f)
	if err != nil {
		h.logger.Warn().Err(err).Msg("initial leaderboard fetch failed")
		return ws.Message{}, false
	}
	msg, err := ws.NewMessage(ws.TypeLeaderboardUpdate, ws.LeaderboardUpdatePayload{
		Timeframe:   string(f.Timeframe),
		SortBy:      string(f.SortBy),
		Top:         toWSEntries(entries),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ws.Message{}, false
	}
	return msg, true
}
