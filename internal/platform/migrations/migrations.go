// Package migrations applies the storefront schema on startup. Every
// statement is idempotent so re-running against an existing database is
// safe.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id        BIGSERIAL PRIMARY KEY,
		name           TEXT NOT NULL,
		email          TEXT NOT NULL UNIQUE,
		password_hash  TEXT NOT NULL DEFAULT '',
		role           TEXT NOT NULL DEFAULT 'user',
		provider       TEXT NOT NULL DEFAULT '',
		provider_id    TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		category_id BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id  BIGSERIAL PRIMARY KEY,
		category_id BIGINT NOT NULL REFERENCES categories(category_id),
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price       NUMERIC(10,2) NOT NULL,
		image1      TEXT NOT NULL DEFAULT '',
		image2      TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stores (
		store_id      BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		location_code TEXT NOT NULL UNIQUE,
		address       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS inventory (
		product_id BIGINT NOT NULL REFERENCES products(product_id),
		store_id   BIGINT NOT NULL REFERENCES stores(store_id),
		quantity   INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (product_id, store_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id    BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(user_id),
		store_id    BIGINT REFERENCES stores(store_id),
		total_price NUMERIC(10,2) NOT NULL,
		status      TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'ready_for_pickup', 'completed', 'cancelled')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id          BIGINT NOT NULL REFERENCES orders(order_id),
		product_id        BIGINT NOT NULL REFERENCES products(product_id),
		quantity          INTEGER NOT NULL,
		price_at_purchase NUMERIC(10,2) NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(user_id),
		token_hash TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Apply executes the schema statements in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
