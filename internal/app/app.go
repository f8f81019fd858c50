package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quizset-service/internal/auth/jwt"
	"github.com/gokatarajesh/quizset-service/internal/config"
	"github.com/gokatarajesh/quizset-service/internal/db/mongostore"
	"github.com/gokatarajesh/quizset-service/internal/db/repository"
	"github.com/gokatarajesh/quizset-service/internal/leaderboard"
	"github.com/gokatarajesh/quizset-service/internal/logging"
	"github.com/gokatarajesh/quizset-service/internal/metrics"
	"github.com/gokatarajesh/quizset-service/internal/quiz"
	"github.com/gokatarajesh/quizset-service/internal/server"
	"github.com/gokatarajesh/quizset-service/internal/stats"
	ws "github.com/gokatarajesh/quizset-service/pkg/http/ws"
)

// dataStore is everything the services read and write. Both the Postgres
// repositories and the MongoDB store provide it.
type dataStore interface {
	quiz.QuestionSetStore
	quiz.AttemptStore
	leaderboard.AttemptLister
	leaderboard.UserLookup
	leaderboard.SnapshotStore
	stats.UserGetter
}

var (
	_ dataStore = (*repository.Store)(nil)
	_ dataStore = (*mongostore.Store)(nil)
)

// Application aggregates shared infrastructure (store, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	redis      *redis.Client
	http       *http.Server
	closeStore func(context.Context) error

	lbService      *leaderboard.Service
	lbBroadcaster  *leaderboard.Broadcaster
	snapshotWorker *leaderboard.SnapshotWorker
	bgCancels      []context.CancelFunc
}

// New bootstraps the logger, the selected store, Redis, services and the HTTP
// server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Str("store", cfg.StoreDriver).Msg("starting application bootstrap")

	store, storePinger, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup; caches will fall through")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	tokens := jwt.NewManager(jwt.TokenConfig{
		AccessSecret: []byte(cfg.Security.JWTSecret),
		Issuer:       cfg.Security.JWTIssuer,
	})

	leaderboardSvc := leaderboard.NewService(store, store, redisClient, m, logger, leaderboard.ServiceOptions{
		CacheTTL:      cfg.Leaderboard.CacheTTL,
		PubSubChannel: cfg.Leaderboard.PubSubChannel,
		UpdateTopN:    cfg.Leaderboard.UpdateTopN,
	})
	quizSvc := quiz.NewService(
		store,
		store,
		quiz.NewKeyCache(redisClient, cfg.Grading.KeyCacheTTL),
		leaderboardSvc,
		m,
		logger,
		quiz.ServiceOptions{MaxResponses: cfg.Grading.MaxResponses},
	)
	statsSvc := stats.NewService(store, store)

	wsHub := ws.NewHub(logger)
	lbBroadcaster := leaderboard.NewBroadcaster(redisClient, wsHub, cfg.Leaderboard.PubSubChannel, logger)
	var snapshotWorker *leaderboard.SnapshotWorker
	if interval := cfg.Leaderboard.SnapshotInterval; interval > 0 {
		snapshotWorker = leaderboard.NewSnapshotWorker(
			leaderboardSvc,
			store,
			interval,
			logger,
		)
	}

	quizHandlers := quiz.NewHTTPHandlers(quizSvc, logger)
	statsHandler := stats.NewHTTPHandler(statsSvc, logger)
	lbHTTPHandler := leaderboard.NewHTTPHandler(leaderboardSvc, store, logger)
	lbWSHandler := leaderboard.NewWSHandler(leaderboardSvc, wsHub, m, cfg.Leaderboard.UpdateTopN, logger)

	apiServer := server.NewHTTPServer(cfg, logger, server.Options{
		Validator: tokens,
		Pingers: map[string]server.Pinger{
			cfg.StoreDriver: storePinger,
			"redis": server.PingFunc(func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}),
		},
	}, server.Routes{
		ListQuestionSets:  quizHandlers.ListQuestionSets,
		GetQuestionSet:    quizHandlers.GetQuestionSet,
		CreateQuestionSet: quizHandlers.CreateQuestionSet,
		DeleteQuestionSet: quizHandlers.DeleteQuestionSet,
		SubmitAttempt:     quizHandlers.SubmitAttempt,
		ListAttempts:      quizHandlers.ListAttempts,
		UserStats:         statsHandler.HandleGet,
		Leaderboard:       lbHTTPHandler.HandleGet,
		LeaderboardWS:     lbWSHandler.HandleWebSocket,
	})

	return &Application{
		cfg:            cfg,
		logger:         logger,
		redis:          redisClient,
		http:           apiServer,
		closeStore:     closeStore,
		lbService:      leaderboardSvc,
		lbBroadcaster:  lbBroadcaster,
		snapshotWorker: snapshotWorker,
		bgCancels:      make([]context.CancelFunc, 0, 2),
	}, nil
}

func openStore(ctx context.Context, cfg *config.App, logger zerolog.Logger) (dataStore, server.Pinger, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		store, err := mongostore.Connect(ctx, mongostore.Config{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, nil, nil, err
		}
		logger.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")
		return store, store, store.Close, nil

	default:
		pool, err := pgxpool.New(ctx, cfg.Postgres.PoolDSN())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		logger.Info().Str("database", cfg.Postgres.Database).Msg("connected to postgres")
		return repository.NewStore(pool), pool, func(context.Context) error {
			pool.Close()
			return nil
		}, nil
	}
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.lbService.Shutdown()

	if err := a.closeStore(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("store shutdown error")
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	if a.lbBroadcaster != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.lbBroadcaster.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("leaderboard broadcaster stopped")
			}
		}()
	}

	if a.snapshotWorker != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := a.snapshotWorker.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("leaderboard snapshot worker stopped")
			}
		}()
	}
}
