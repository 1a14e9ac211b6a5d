package repository

import (
	"context"
	"fmt"

	"github.com/anchorzup/url-shortener/internal/models"
	"github.com/google/uuid"
)

// ClickRepository чтение истории переходов. Запись событий идёт через
// ShortURLRepository.RegisterClick вместе с инкрементом счётчика.
type ClickRepository interface {
	ListByShortURL(ctx context.Context, shortURLID uuid.UUID) ([]models.Click, error)
	CountByShortURL(ctx context.Context, shortURLID uuid.UUID) (int64, error)
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) ListByShortURL(ctx context.Context, shortURLID uuid.UUID) ([]models.Click, error) {
	query := `
		SELECT id, short_url_id, clicked_at,
			COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(referer, '')
		FROM clicks
		WHERE short_url_id = $1
		ORDER BY clicked_at DESC, id DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, shortURLID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clicks: %w", err)
	}
	defer rows.Close()

	var clicks []models.Click
	for rows.Next() {
		var click models.Click
		err := rows.Scan(
			&click.ID,
			&click.ShortURLID,
			&click.ClickedAt,
			&click.IPAddress,
			&click.UserAgent,
			&click.Referer,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan click: %w", err)
		}
		clicks = append(clicks, click)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clicks: %w", err)
	}

	return clicks, nil
}

func (r *clickRepository) CountByShortURL(ctx context.Context, shortURLID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM clicks WHERE short_url_id = $1`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, shortURLID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}

	return count, nil
}
