package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"

	"github.com/Alias1177/Problepo/models"
)

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the params as a lib/pq connection string
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DB is the optional usage log. It never stores prediction results.
type DB struct {
	conn   *sql.DB
	exec   execer
	now    func() time.Time
	logger zerolog.Logger
}

// New connects, retrying with exponential backoff for up to maxWait, and creates the table
func New(ctx context.Context, params ConnectionParams, maxWait time.Duration) (*DB, error) {
	conn, err := sql.Open("postgres", params.DSN())
	if err != nil {
		return nil, err
	}

	logger := log.With().Str("component", "usage_log").Logger()

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = maxWait
	err = backoff.RetryNotify(
		func() error { return conn.PingContext(ctx) },
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			logger.Warn().Err(err).Dur("retry_in", next).Msg("PostgreSQL not reachable yet")
		},
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := createTables(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &DB{conn: conn, exec: conn, now: time.Now, logger: logger}, nil
}

func createTables(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS prediction_requests (
			id UUID PRIMARY KEY,
			client_hash TEXT NOT NULL,
			source TEXT NOT NULL,
			topic TEXT NOT NULL,
			category TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			outcome TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// RecordUsage appends one row. Failures are logged and swallowed.
func (db *DB) RecordUsage(ctx context.Context, event models.UsageEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = db.now()
	}

	_, err := db.exec.ExecContext(ctx, `
		INSERT INTO prediction_requests (
			id, client_hash, source, topic, category, timeframe, outcome, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.NewString(), HashClientID(event.ClientID), event.Source, event.Topic,
		string(event.Category), string(event.Timeframe), event.Outcome, event.CreatedAt.UTC())

	if err != nil {
		db.logger.Warn().Err(err).Str("outcome", event.Outcome).Msg("Failed to record usage")
	}
}

// Ping checks the connection
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// HashClientID keeps IPs and chat IDs out of the table while still grouping by client
func HashClientID(id string) string {
	sum := blake2b.Sum256([]byte(id))
	return hex.EncodeToString(sum[:16])
}
