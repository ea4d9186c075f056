// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/config"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/models"
)

const queryTimeout = 5 * time.Second

// PostgreSQL is the database/sql TierStore on lib/pq.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(cfg config.PostgresConfig) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgreSQL{db: db}, nil
}

func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS entitlements (
            id SERIAL PRIMARY KEY,
            user_id VARCHAR(255) UNIQUE NOT NULL,
            tier VARCHAR(32) NOT NULL DEFAULT 'affiliate',
            expires_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ
        )
    `)
	return err
}

func (p *PostgreSQL) GetEntitlement(ctx context.Context, userID string) (models.Entitlement, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		tier      string
		expiresAt sql.NullTime
		updatedAt time.Time
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT tier, expires_at, updated_at FROM entitlements WHERE user_id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&tier, &expiresAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entitlement{}, ErrRecordNotFound
	}
	if err != nil {
		return models.Entitlement{}, err
	}

	parsed, _ := models.ParseTier(tier)
	e := models.Entitlement{UserID: userID, Tier: parsed, UpdatedAt: updatedAt}
	if expiresAt.Valid {
		t := expiresAt.Time
		e.ExpiresAt = &t
	}
	return e, nil
}

func (p *PostgreSQL) SetEntitlement(ctx context.Context, userID string, tier models.Tier, expiresAt *time.Time) error {
	if err := checkTier(tier); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := p.db.ExecContext(ctx, `
        INSERT INTO entitlements (user_id, tier, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id)
        DO UPDATE SET tier = $2, expires_at = $3, updated_at = CURRENT_TIMESTAMP, deleted_at = NULL
    `, userID, string(tier), expiresAt)
	return err
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
