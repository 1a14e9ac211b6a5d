package models

import (
	"time"

	"github.com/google/uuid"
)

// ShortURL запись короткой ссылки. Удаление мягкое: is_active=false,
// история кликов сохраняется.
type ShortURL struct {
	ID             uuid.UUID  `json:"id"`
	ShortCode      string     `json:"short_code"`
	OriginalURL    string     `json:"original_url"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	IsActive       bool       `json:"-"`
	ClickCount     int64      `json:"click_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// Expired проверяет, истёк ли срок действия ссылки на момент now.
func (u *ShortURL) Expired(now time.Time) bool {
	return !u.ExpiresAt.After(now)
}

type CreateShortURLInput struct {
	OriginalURL string     `json:"original_url" binding:"required"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}
