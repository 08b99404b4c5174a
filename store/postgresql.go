package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL driver
	_ "github.com/lib/pq"
)

// PostgreSQL is a KV backend on a plain SQL table with an expiry column.
// Expired rows are filtered on read and purged opportunistically during
// key listing, which the sweep runs anyway.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS kv_entries (
            key VARCHAR(255) PRIMARY KEY,
            value BYTEA NOT NULL,
            expires_at TIMESTAMPTZ NOT NULL
        )
    `)
	return err
}

func (p *PostgreSQL) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE key = $1 AND expires_at > NOW()`,
		key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (p *PostgreSQL) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := p.db.ExecContext(ctx, `
        INSERT INTO kv_entries (key, value, expires_at)
        VALUES ($1, $2, NOW() + $3 * INTERVAL '1 second')
        ON CONFLICT (key) DO UPDATE
        SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, int64(ttl.Seconds()))
	return err
}

func (p *PostgreSQL) Delete(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	return err
}

func (p *PostgreSQL) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	// Piggyback the purge of expired rows on the periodic listing.
	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE expires_at <= NOW()`); err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT key FROM kv_entries WHERE key LIKE $1 || '%' AND expires_at > NOW()`,
		prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
