package repository

import (
	"context"
	"fmt"
)

// Схема хранилища. Частичный уникальный индекс гарантирует уникальность
// короткого кода только среди активных записей: код мягко удалённой ссылки
// может быть выдан заново.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS short_urls (
		id               UUID PRIMARY KEY,
		original_url     TEXT NOT NULL,
		short_code       VARCHAR(10) NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL,
		expires_at       TIMESTAMPTZ NOT NULL,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		click_count      BIGINT NOT NULL DEFAULT 0,
		last_accessed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_short_urls_code_active
		ON short_urls (short_code) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS idx_short_urls_created_at
		ON short_urls (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS clicks (
		id           UUID PRIMARY KEY,
		short_url_id UUID NOT NULL REFERENCES short_urls (id) ON DELETE CASCADE,
		clicked_at   TIMESTAMPTZ NOT NULL,
		ip_address   VARCHAR(45),
		user_agent   VARCHAR(500),
		referer      VARCHAR(100)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_short_url_id
		ON clicks (short_url_id)`,
}

// InitSchema создаёт таблицы и индексы, если их ещё нет.
func (db *PostgresDB) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
