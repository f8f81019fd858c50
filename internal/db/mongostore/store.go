// Package mongostore implements the quiz, stats and leaderboard stores on
// MongoDB. Question sets are stored as whole documents with their questions
// embedded; ids are UUID strings so both backends share identifiers.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	questionSetsCollection = "question_sets"
	attemptsCollection     = "attempts"
	usersCollection        = "users"
	snapshotsCollection    = "leaderboard_snapshots"
)

// Config holds connection settings.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store implements every store interface over one database.
type Store struct {
	client    *mongo.Client
	sets      *mongo.Collection
	attempts  *mongo.Collection
	users     *mongo.Collection
	snapshots *mongo.Collection
}

// Connect dials MongoDB and verifies the connection.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(timeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return New(client, cfg.Database), nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:    client,
		sets:      db.Collection(questionSetsCollection),
		attempts:  db.Collection(attemptsCollection),
		users:     db.Collection(usersCollection),
		snapshots: db.Collection(snapshotsCollection),
	}
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	attemptIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "submitted_at", Value: -1}}},
		{Keys: bson.D{{Key: "submitted_at", Value: 1}}},
		{Keys: bson.D{{Key: "question_set_id", Value: 1}}},
	}
	if _, err := s.attempts.Indexes().CreateMany(ctx, attemptIndexes); err != nil {
		return fmt.Errorf("create attempt indexes: %w", err)
	}

	setIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}
	if _, err := s.sets.Indexes().CreateMany(ctx, setIndexes); err != nil {
		return fmt.Errorf("create question set indexes: %w", err)
	}

	userIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}
	if _, err := s.users.Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	snapshotIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "time_window", Value: 1}, {Key: "sort_by", Value: 1}, {Key: "generated_at", Value: -1}}},
	}
	if _, err := s.snapshots.Indexes().CreateMany(ctx, snapshotIndexes); err != nil {
		return fmt.Errorf("create snapshot indexes: %w", err)
	}
	return nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
