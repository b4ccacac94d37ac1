package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

type PostgresService struct {
	db     *sql.DB
	logger *zap.Logger
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Schema is created on startup if missing. The unique index on
// document_number is what makes insert-or-reject-as-duplicate atomic; the
// service layer never pre-checks existence.
const schema = `
CREATE TABLE IF NOT EXISTS members (
	id                          UUID PRIMARY KEY,
	first_name                  TEXT NOT NULL,
	last_name                   TEXT NOT NULL,
	birth_date                  DATE NOT NULL,
	document_number             TEXT NOT NULL UNIQUE,
	card_holder_first_name      TEXT NOT NULL,
	card_holder_last_name       TEXT NOT NULL,
	card_holder_document_number TEXT NOT NULL,
	credit_card_number          TEXT NOT NULL,
	credit_card_expiration_date TEXT NOT NULL,
	document_image_file_id      UUID,
	document_image_file_name    TEXT,
	created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS member_documents (
	id              UUID PRIMARY KEY,
	file_name       TEXT NOT NULL,
	document_number TEXT NOT NULL,
	content         BYTEA NOT NULL,
	uploaded_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

func NewPostgresService(cfg PostgresConfig, logger *zap.Logger) (*PostgresService, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("PostgreSQL connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)

	return &PostgresService{
		db:     db,
		logger: logger,
	}, nil
}

// EnsureSchema creates the members and member_documents tables if absent.
func (ps *PostgresService) EnsureSchema(ctx context.Context) error {
	if _, err := ps.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (ps *PostgresService) GetDB() *sql.DB {
	return ps.db
}

func (ps *PostgresService) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

func (ps *PostgresService) Ping(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}
