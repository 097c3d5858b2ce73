package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"docpress/internal/tokens"
)

// TokenRepository reads API tokens from the tokens table.
type TokenRepository struct {
	DB  *DB
	DSN string
}

// NewTokenRepository wires a DB manager to a DSN.
func NewTokenRepository(db *DB, dsn string) *TokenRepository {
	return &TokenRepository{DB: db, DSN: dsn}
}

// VerifySchema creates the tokens table and its index when absent.
func VerifySchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl1 := `CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		rate_limit INTEGER NOT NULL DEFAULT 60,
		scope JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		comment TEXT
	);`
	ddl2 := `CREATE INDEX IF NOT EXISTS idx_tokens_created_at ON tokens (created_at);`
	if _, err := db.ExecContext(ctx, ddl1); err != nil {
		return fmt.Errorf("ensure tokens table: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddl2); err != nil {
		return fmt.Errorf("ensure tokens index: %w", err)
	}
	return nil
}

// LoadTokens reads the full token set. It satisfies tokens.Repo.
func (r *TokenRepository) LoadTokens(ctx context.Context) (map[string]tokens.Entry, error) {
	db, err := r.DB.Get(r.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := VerifySchema(db); err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, `SELECT token, rate_limit, scope FROM tokens;`)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	out := make(map[string]tokens.Entry)
	for rows.Next() {
		var (
			token    string
			limit    int
			scopeRaw []byte
		)
		if err := rows.Scan(&token, &limit, &scopeRaw); err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		scope := tokens.Scope{}
		if len(scopeRaw) > 0 {
			if err := json.Unmarshal(scopeRaw, &scope); err != nil {
				return nil, fmt.Errorf("decode scope for token: %w", err)
			}
		}
		out[token] = tokens.Entry{RateLimit: limit, Scope: scope}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}
	return out, nil
}
