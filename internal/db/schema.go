package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Economy schema. Statements are idempotent so every binary can run them at
// startup without coordination.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS game`,

	`CREATE TABLE IF NOT EXISTS game.bank_accounts (
		id          bigserial PRIMARY KEY,
		owner_type  text NOT NULL,
		owner_id    bigint NOT NULL,
		currency    text NOT NULL DEFAULT 'CRD',
		balance     bigint NOT NULL DEFAULT 0 CHECK (balance >= 0),
		is_active   boolean NOT NULL DEFAULT true,
		created_at  timestamptz NOT NULL DEFAULT now(),
		updated_at  timestamptz NOT NULL DEFAULT now(),
		UNIQUE (owner_type, owner_id, currency)
	)`,

	`CREATE TABLE IF NOT EXISTS game.bank_transactions (
		id            bigserial PRIMARY KEY,
		account_id    bigint NOT NULL REFERENCES game.bank_accounts (id),
		tx_type       text NOT NULL,
		direction     text NOT NULL CHECK (direction IN ('CREDIT', 'DEBIT')),
		amount        bigint NOT NULL CHECK (amount >= 0),
		currency      text NOT NULL,
		balance_after bigint NOT NULL,
		tx_group_id   uuid,
		description   text,
		ts            timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bank_transactions_account_ts
		ON game.bank_transactions (account_id, ts DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_bank_transactions_group
		ON game.bank_transactions (tx_group_id) WHERE tx_group_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS game.stocks (
		id               bigserial PRIMARY KEY,
		corp_id          bigint NOT NULL UNIQUE,
		ticker           text NOT NULL UNIQUE,
		total_shares     bigint NOT NULL CHECK (total_shares > 0),
		par_value        bigint NOT NULL DEFAULT 0,
		current_price    bigint NOT NULL CHECK (current_price > 0),
		last_dividend_ts timestamptz
	)`,

	`CREATE TABLE IF NOT EXISTS game.corp_shareholders (
		player_id bigint NOT NULL,
		corp_id   bigint NOT NULL,
		shares    bigint NOT NULL CHECK (shares >= 0),
		PRIMARY KEY (player_id, corp_id)
	)`,

	`CREATE TABLE IF NOT EXISTS game.stock_dividends (
		id               bigserial PRIMARY KEY,
		stock_id         bigint NOT NULL REFERENCES game.stocks (id),
		amount_per_share bigint NOT NULL CHECK (amount_per_share > 0),
		declared_ts      timestamptz NOT NULL DEFAULT now(),
		paid_ts          timestamptz
	)`,

	`CREATE TABLE IF NOT EXISTS game.bank_flags (
		player_id bigint PRIMARY KEY,
		is_frozen boolean NOT NULL DEFAULT false
	)`,

	// Owned by the corp subsystem; created here so the engine's binaries
	// and tests can run against an empty database.
	`CREATE TABLE IF NOT EXISTS game.corps (
		id            bigserial PRIMARY KEY,
		name          text NOT NULL,
		ceo_player_id bigint NOT NULL,
		credit_rating bigint NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS game.player_progress (
		player_id       bigint PRIMARY KEY,
		alignment       bigint NOT NULL DEFAULT 0,
		experience      bigint NOT NULL DEFAULT 0,
		commission_rank integer NOT NULL DEFAULT 0,
		commission      bigint NOT NULL DEFAULT 0,
		updated_at      timestamptz NOT NULL DEFAULT now()
	)`,
}

// Migrate brings the schema up to date.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
