package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/quizset-service/internal/config"
)

func main() {
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	if err := newRootCmd().Execute(); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Apply Postgres schema migrations for the quizset service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "db/migrations", "directory containing migration files")

	cmd.AddCommand(
		migrationCmd("up", "Apply all pending migrations", &dir, func(db *sql.DB, dir string) error {
			if err := goose.Up(db, dir); err != nil {
				return fmt.Errorf("run migrations up: %w", err)
			}
			log.Info().Msg("migrations applied successfully")
			return nil
		}),
		migrationCmd("down", "Roll back the latest migration", &dir, func(db *sql.DB, dir string) error {
			if err := goose.Down(db, dir); err != nil {
				return fmt.Errorf("run migrations down: %w", err)
			}
			log.Info().Msg("migrations rolled back successfully")
			return nil
		}),
		migrationCmd("status", "Print the status of every migration", &dir, func(db *sql.DB, dir string) error {
			return goose.Status(db, dir)
		}),
	)
	return cmd
}

func migrationCmd(use, short string, dir *string, run func(*sql.DB, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			migrationDir, err := resolveDir(*dir)
			if err != nil {
				return err
			}
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()

			log.Info().Str("migration_dir", migrationDir).Str("command", use).Msg("running migrations")
			return run(db, migrationDir)
		},
	}
}

func resolveDir(dir string) (string, error) {
	migrationDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve migration directory %q: %w", dir, err)
	}
	if _, err := os.Stat(migrationDir); os.IsNotExist(err) {
		return "", fmt.Errorf("migration directory %s does not exist", migrationDir)
	}
	return migrationDir, nil
}

// open connects through pgx's database/sql driver, which goose requires.
func open() (*sql.DB, error) {
	var pg config.Postgres
	if err := env.ParseWithOptions(&pg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if pg.User == "" || pg.Password == "" || pg.Database == "" {
		return nil, fmt.Errorf("PG_USER, PG_PASSWORD and PG_DATABASE are required")
	}

	db, err := sql.Open("pgx", pg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database %s:%d: %w", pg.Host, pg.Port, err)
	}

	log.Info().
		Str("host", pg.Host).
		Int("port", pg.Port).
		Str("database", pg.Database).
		Msg("connected to database")

	goose.SetTableName("goose_db_version")
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
