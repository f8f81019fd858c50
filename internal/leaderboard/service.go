package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizset-service/internal/domain"
	"github.com/gokatarajesh/quizset-service/internal/metrics"
	ws "github.com/gokatarajesh/quizset-service/pkg/http/ws"
)

// AttemptLister returns graded attempts for aggregation.
type AttemptLister interface {
	ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.Attempt, error)
}

// UserLookup resolves directory entries for a batch of users.
type UserLookup interface {
	LookupUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.User, error)
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	CacheTTL       time.Duration
	PubSubChannel  string
	RedisKeyPrefix string
	UpdateTopN     int
	Now            func() time.Time
}

// Service computes leaderboards from stored attempts, caches results in Redis
// and emits updates over Pub/Sub.
type Service struct {
	attempts      AttemptLister
	users         UserLookup
	redis         *redis.Client
	metrics       *metrics.Metrics
	logger        zerolog.Logger
	cacheTTL      time.Duration
	pubsubChannel string
	prefix        string
	updateTopN    int
	now           func() time.Time

	// bgCtx scopes publishes started by RecordAttempt; Shutdown cancels it.
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bgMu     sync.Mutex
	bgWG     sync.WaitGroup
}

// NewService constructs a leaderboard service instance. redis may be nil, in
// which case every call computes directly and nothing is published.
func NewService(attempts AttemptLister, users UserLookup, redis *redis.Client, m *metrics.Metrics, logger zerolog.Logger, opts ServiceOptions) *Service {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "lb:updates"
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}
	topN := opts.UpdateTopN
	if topN <= 0 {
		topN = 10
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	return &Service{
		attempts:      attempts,
		users:         users,
		redis:         redis,
		metrics:       m,
		logger:        logger.With().Str("component", "leaderboard").Logger(),
		cacheTTL:      ttl,
		pubsubChannel: channel,
		prefix:        prefix,
		updateTopN:    topN,
		now:           now,
		bgCtx:         bgCtx,
		bgCancel:      bgCancel,
	}
}

// Top returns the ranked leaderboard for f, served from cache when the
// attempt generation has not moved since it was computed.
func (s *Service) Top(ctx context.Context, f Filters) ([]Entry, error) {
	key, cacheable := s.cacheKey(ctx, f)
	if cacheable {
		if entries, ok := s.readCache(ctx, key); ok {
			s.metrics.LeaderboardCache(true)
			return entries, nil
		}
		s.metrics.LeaderboardCache(false)
	}

	entries, err := s.compute(ctx, f)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.writeCache(ctx, key, entries)
	}
	return entries, nil
}

// RecordAttempt invalidates cached leaderboards and publishes the default
// standings for WebSocket consumers.
func (s *Service) RecordAttempt(ctx context.Context, attempt domain.Attempt) error {
	if s.redis == nil {
		return nil
	}
	if err := s.redis.Incr(ctx, s.generationKey()).Err(); err != nil {
		return fmt.Errorf("bump leaderboard generation: %w", err)
	}

	s.logger.Debug().
		Str("attempt_id", attempt.ID.String()).
		Str("user_id", attempt.UserID.String()).
		Msg("leaderboard generation bumped")

	s.publishAsync()
	return nil
}

func (s *Service) publishAsync() {
	s.bgMu.Lock()
	defer s.bgMu.Unlock()
	if s.bgCtx.Err() != nil {
		return
	}
	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.PublishUpdate(s.bgCtx)
	}()
}

// Shutdown cancels in-flight publishes and waits for them to return. Call it
// before closing the Redis client; later attempts no longer publish.
func (s *Service) Shutdown() {
	s.bgMu.Lock()
	s.bgCancel()
	s.bgMu.Unlock()
	s.bgWG.Wait()
}

// Invalidate drops every cached leaderboard, e.g. after a cascade delete.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	if err := s.redis.Incr(ctx, s.generationKey()).Err(); err != nil {
		return fmt.Errorf("bump leaderboard generation: %w", err)
	}
	return nil
}

// PublishUpdate pushes the default leaderboard onto the update channel.
func (s *Service) PublishUpdate(ctx context.Context) {
	if s.redis == nil {
		return
	}

	f := Filters{Timeframe: TimeframeAll, SortBy: SortByAverage, Limit: s.updateTopN}
	entries, err := s.Top(ctx, f)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to collect leaderboard update")
		return
	}

	payload := ws.LeaderboardUpdatePayload{
		Timeframe:   string(f.Timeframe),
		SortBy:      string(f.SortBy),
		Top:         toWSEntries(entries),
		GeneratedAt: s.now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.pubsubChannel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

func (s *Service) compute(ctx context.Context, f Filters) ([]Entry, error) {
	now := s.now()
	attempts, err := s.attempts.ListAttempts(ctx, domain.AttemptFilter{Since: WindowStart(now, f.Timeframe)})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	users := map[uuid.UUID]domain.User{}
	if ids := userIDs(attempts); len(ids) > 0 {
		users, err = s.users.LookupUsers(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("lookup users: %w", err)
		}
	}

	return Compute(attempts, users, f, now), nil
}

func (s *Service) cacheKey(ctx context.Context, f Filters) (string, bool) {
	if s.redis == nil {
		return "", false
	}
	gen, err := s.redis.Get(ctx, s.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("leaderboard generation read failed")
		return "", false
	}
	return fmt.Sprintf("%s:cache:%d:%s:%s:%d", s.prefix, gen, f.Timeframe, f.SortBy, f.Limit), true
}

func (s *Service) readCache(ctx context.Context, key string) ([]Entry, bool) {
	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("leaderboard cache read failed")
		}
		return nil, false
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("leaderboard cache decode failed")
		return nil, false
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, true
}

func (s *Service) writeCache(ctx context.Context, key string, entries []Entry) {
	data, err := json.Marshal(entries)
	if err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache encode failed")
		return
	}
	if err := s.redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("leaderboard cache write failed")
	}
}

func (s *Service) generationKey() string {
	return s.prefix + ":gen"
}
