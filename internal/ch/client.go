// Package ch stores unified records and dead letters in ClickHouse.
package ch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Client wraps a ClickHouse connection.
type Client struct {
	db *sql.DB
}

// New creates a ClickHouse client from a DSN and pings it.
func New(ctx context.Context, dsn string) (*Client, error) {
	db, err := sql.Open("clickhouse", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Client{db: db}, nil
}

// Close releases database resources.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Ping ensures the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("clickhouse ping: %w", err)
	}
	return nil
}

// EnsureSchema creates every table that does not exist yet.
func (c *Client) EnsureSchema(ctx context.Context) error {
	for _, t := range tables {
		if _, err := c.db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	return nil
}

// Count returns the number of rows in table, useful for tests.
func (c *Client) Count(ctx context.Context, table string) (int64, error) {
	if _, ok := tableByName(table); !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var total uint64
	if err := c.db.QueryRowContext(ctx, "SELECT count() FROM "+table).Scan(&total); err != nil {
		return 0, err
	}
	return int64(total), nil
}
