package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anchorzup/url-shortener/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ShortURLRepository хранилище коротких ссылок.
// Все операции атомарны в пределах одной записи.
type ShortURLRepository interface {
	Create(ctx context.Context, url *models.ShortURL) error
	GetActiveByCode(ctx context.Context, code string) (*models.ShortURL, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListActive(ctx context.Context) ([]models.ShortURL, error)
	// Delete помечает запись неактивной. Возвращает короткий код удалённой
	// записи (пустая строка, если записи нет или она уже неактивна).
	Delete(ctx context.Context, id uuid.UUID) (string, error)
	// RegisterClick в одной транзакции увеличивает счётчик переходов,
	// обновляет last_accessed_at и добавляет событие клика.
	RegisterClick(ctx context.Context, click *models.Click) (*models.ShortURL, error)
}

type shortURLRepository struct {
	db *PostgresDB
}

func NewShortURLRepository(db *PostgresDB) ShortURLRepository {
	return &shortURLRepository{db: db}
}

const shortURLColumns = `id, short_code, original_url, created_at, expires_at, is_active, click_count, last_accessed_at`

func (r *shortURLRepository) Create(ctx context.Context, url *models.ShortURL) error {
	query := `
		INSERT INTO short_urls (id, short_code, original_url, created_at, expires_at, is_active, click_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		url.ID,
		url.ShortCode,
		url.OriginalURL,
		url.CreatedAt,
		url.ExpiresAt,
		url.IsActive,
		url.ClickCount,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create short url: %w", err)
	}

	return nil
}

func (r *shortURLRepository) GetActiveByCode(ctx context.Context, code string) (*models.ShortURL, error) {
	query := `
		SELECT ` + shortURLColumns + `
		FROM short_urls
		WHERE short_code = $1 AND is_active
	`

	url, err := scanShortURL(r.db.Pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get short url: %w", err)
	}

	return url, nil
}

func (r *shortURLRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM short_urls WHERE short_code = $1 AND is_active)`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}

	return exists, nil
}

func (r *shortURLRepository) ListActive(ctx context.Context) ([]models.ShortURL, error) {
	// Порядок детерминирован: id лишь разводит записи с одинаковым created_at.
	query := `
		SELECT ` + shortURLColumns + `
		FROM short_urls
		WHERE is_active
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list short urls: %w", err)
	}
	defer rows.Close()

	var urls []models.ShortURL
	for rows.Next() {
		url, err := scanShortURL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan short url: %w", err)
		}
		urls = append(urls, *url)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating short urls: %w", err)
	}

	return urls, nil
}

func (r *shortURLRepository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	// Удаление идемпотентно: повторный вызов и несуществующий id не ошибка.
	query := `
		UPDATE short_urls
		SET is_active = FALSE
		WHERE id = $1 AND is_active
		RETURNING short_code
	`

	var code string
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to delete short url: %w", err)
	}

	return code, nil
}

func (r *shortURLRepository) RegisterClick(ctx context.Context, click *models.Click) (*models.ShortURL, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Инкремент на стороне БД: параллельные клики не теряются.
	updateQuery := `
		UPDATE short_urls
		SET click_count = click_count + 1, last_accessed_at = $2
		WHERE id = $1 AND is_active
		RETURNING ` + shortURLColumns

	url, err := scanShortURL(tx.QueryRow(ctx, updateQuery, click.ShortURLID, click.ClickedAt))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to increment click count: %w", err)
	}

	insertQuery := `
		INSERT INTO clicks (id, short_url_id, clicked_at, ip_address, user_agent, referer)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
	`

	_, err = tx.Exec(ctx, insertQuery,
		click.ID,
		click.ShortURLID,
		click.ClickedAt,
		click.IPAddress,
		click.UserAgent,
		click.Referer,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit click: %w", err)
	}

	return url, nil
}

// scanShortURL читает запись из строки результата.
func scanShortURL(row pgx.Row) (*models.ShortURL, error) {
	url := &models.ShortURL{}
	var lastAccessedAt *time.Time

	err := row.Scan(
		&url.ID,
		&url.ShortCode,
		&url.OriginalURL,
		&url.CreatedAt,
		&url.ExpiresAt,
		&url.IsActive,
		&url.ClickCount,
		&lastAccessedAt,
	)
	if err != nil {
		return nil, err
	}

	url.LastAccessedAt = lastAccessedAt
	return url, nil
}

// isUniqueViolation проверяет нарушение уникального индекса (код 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
