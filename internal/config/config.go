package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store drivers selectable with STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quizset-service"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`
	StoreDriver             string        `env:"STORE_DRIVER" envDefault:"postgres"`

	Postgres    Postgres
	Mongo       Mongo
	Redis       Redis
	Security    Security
	Leaderboard Leaderboard
	Grading     Grading
	CORS        CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the keyword/value connection string understood by pgx.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// PoolDSN is DSN plus pgxpool sizing. Only pgxpool accepts the pool_ keys.
func (p Postgres) PoolDSN() string {
	return fmt.Sprintf("%s pool_max_conns=%d", p.DSN(), p.MaxConns)
}

// Mongo configures the document store used when STORE_DRIVER=mongo.
type Mongo struct {
	URI            string        `env:"MONGO_URI" envDefault:""`
	Database       string        `env:"MONGO_DATABASE" envDefault:"quizset"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
}

// Redis holds cache + pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for verifying access tokens.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:"quizset-service"`
}

// Leaderboard governs caching, snapshotting and broadcast behavior.
type Leaderboard struct {
	CacheTTL         time.Duration `env:"LEADERBOARD_CACHE_TTL" envDefault:"30s"`
	PubSubChannel    string        `env:"LEADERBOARD_CHANNEL" envDefault:"lb:updates"`
	UpdateTopN       int           `env:"LEADERBOARD_UPDATE_TOP" envDefault:"10"`
	SnapshotInterval time.Duration `env:"LEADERBOARD_SNAPSHOT_INTERVAL" envDefault:"5m"`
}

// Grading bounds submissions and answer key caching.
type Grading struct {
	KeyCacheTTL  time.Duration `env:"ANSWER_KEY_CACHE_TTL" envDefault:"10m"`
	MaxResponses int           `env:"GRADING_MAX_RESPONSES" envDefault:"500"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on the selected store driver.
func (c *App) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.Postgres.User == "" || c.Postgres.Password == "" || c.Postgres.Database == "" {
			return errors.New("PG_USER, PG_PASSWORD and PG_DATABASE are required for the postgres store")
		}
	case StoreDriverMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required for the mongo store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}
