package postgres

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"docpress/internal/config"
)

// DB manages a single *sql.DB keyed by its DSN. A DSN change closes the old
// handle and opens a fresh one; identical DSNs share the same pool.
type DB struct {
	mu  sync.Mutex
	dsn string
	db  *sql.DB
}

// NewDB returns an empty manager. Connections open lazily on first use.
func NewDB() *DB {
	return &DB{}
}

// Get returns the handle for dsn, opening it if needed.
func (p *DB) Get(dsn string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil && p.dsn == dsn {
		return p.db, nil
	}
	if p.db != nil {
		_ = p.db.Close()
		p.db = nil
		p.dsn = ""
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// This is a small, low-throughput control plane table.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	p.db = db
	p.dsn = dsn
	return p.db, nil
}

// Close releases the current handle, if any.
func (p *DB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	p.dsn = ""
	return err
}

func defaultPort(cfg config.PostgresConfig) int {
	if cfg.Port != 0 {
		return cfg.Port
	}
	return 5432
}

// DSN builds a postgres:// connection string from discrete config fields.
// A Host that already is a postgres URL passes through unchanged.
func DSN(cfg config.PostgresConfig) (string, error) {
	if strings.HasPrefix(cfg.Host, "postgres://") || strings.HasPrefix(cfg.Host, "postgresql://") {
		return cfg.Host, nil
	}
	if cfg.Host == "" {
		return "", fmt.Errorf("postgres host is empty")
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("postgres database is empty")
	}
	if cfg.User == "" {
		return "", fmt.Errorf("postgres user is empty")
	}

	hostPort := cfg.Host
	port := defaultPort(cfg)
	// Handle IPv6 or explicit host:port strings.
	if strings.HasPrefix(hostPort, "[") {
		if !strings.Contains(hostPort, "]:") {
			hostPort = fmt.Sprintf("%s:%d", hostPort, port)
		}
	} else if strings.Count(hostPort, ":") >= 2 {
		hostPort = fmt.Sprintf("[%s]:%d", hostPort, port)
	} else if !strings.Contains(hostPort, ":") {
		hostPort = fmt.Sprintf("%s:%d", hostPort, port)
	}

	u := &url.URL{Scheme: "postgres", Host: hostPort, Path: "/" + cfg.Database}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else {
		u.User = url.User(cfg.User)
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
