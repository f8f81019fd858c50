package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveAttemptOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAttempt(3, 3)
	m.ObserveAttempt(0, 3)
	m.ObserveAttempt(1, 3)
	m.ObserveAttempt(0, 0)
	m.ObserveAttempt(2, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attemptsGraded.WithLabelValues("perfect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsGraded.WithLabelValues("zero")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsGraded.WithLabelValues("partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attemptsGraded.WithLabelValues("empty")))
}

func TestCacheCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.LeaderboardCache(true)
	m.LeaderboardCache(false)
	m.LeaderboardCache(false)
	m.KeyCache(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.leaderboardCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.leaderboardCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.keyCache.WithLabelValues("hit")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAttempt(1, 1)
		m.LeaderboardCache(true)
		m.KeyCache(false)
		m.ConnectionOpened()
		m.ConnectionClosed()
	})
}
