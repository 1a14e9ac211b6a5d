package models

import (
	"time"

	"github.com/google/uuid"
)

// Click одно событие перехода по короткой ссылке. Записи неизменяемы.
type Click struct {
	ID         uuid.UUID `json:"id"`
	ShortURLID uuid.UUID `json:"short_url_id"`
	ClickedAt  time.Time `json:"clicked_at"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
}

// ClickMetadata данные запроса, сопровождающие переход.
// Любое поле может быть пустым.
type ClickMetadata struct {
	IPAddress string
	UserAgent string
	Referer   string
}
