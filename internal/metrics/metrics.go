package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, which keeps unit tests free of registry setup.
type Metrics struct {
	attemptsGraded   *prometheus.CounterVec
	questionsGraded  prometheus.Histogram
	leaderboardCache *prometheus.CounterVec
	keyCache         *prometheus.CounterVec
	wsConnections    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attemptsGraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizset",
			Name:      "attempts_graded_total",
			Help:      "Graded quiz submissions by outcome.",
		}, []string{"outcome"}),
		questionsGraded: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizset",
			Name:      "attempt_questions_graded",
			Help:      "Number of questions graded per submission.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		leaderboardCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizset",
			Name:      "leaderboard_cache_requests_total",
			Help:      "Leaderboard cache lookups by result.",
		}, []string{"result"}),
		keyCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizset",
			Name:      "answer_key_cache_requests_total",
			Help:      "Answer key cache lookups by result.",
		}, []string{"result"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quizset",
			Name:      "websocket_connections",
			Help:      "Open leaderboard WebSocket connections.",
		}),
	}

	reg.MustRegister(m.attemptsGraded, m.questionsGraded, m.leaderboardCache, m.keyCache, m.wsConnections)
	return m
}

// ObserveAttempt records a graded submission.
func (m *Metrics) ObserveAttempt(score, total int) {
	if m == nil {
		return
	}
	outcome := "partial"
	switch {
	case total == 0:
		outcome = "empty"
	case score == total:
		outcome = "perfect"
	case score == 0:
		outcome = "zero"
	}
	m.attemptsGraded.WithLabelValues(outcome).Inc()
	m.questionsGraded.Observe(float64(total))
}

// LeaderboardCache records a leaderboard cache hit or miss.
func (m *Metrics) LeaderboardCache(hit bool) {
	if m == nil {
		return
	}
	m.leaderboardCache.WithLabelValues(hitLabel(hit)).Inc()
}

// KeyCache records an answer key cache hit or miss.
func (m *Metrics) KeyCache(hit bool) {
	if m == nil {
		return
	}
	m.keyCache.WithLabelValues(hitLabel(hit)).Inc()
}

// ConnectionOpened tracks a new WebSocket client.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

// ConnectionClosed tracks a departed WebSocket client.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
