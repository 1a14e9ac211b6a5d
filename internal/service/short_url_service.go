package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/anchorzup/url-shortener/internal/models"
	"github.com/anchorzup/url-shortener/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ошибки сервиса
var (
	ErrInvalidURL        = errors.New("невалидный URL")
	ErrInvalidExpiration = errors.New("невалидный срок действия")
	ErrExpired           = errors.New("срок действия ссылки истёк")
)

// Константы сервиса
const (
	defaultTTL    = 30 * 24 * time.Hour // срок действия по умолчанию
	minExpiryLead = 5 * time.Second     // запас до истечения при создании
	maxURLLength  = 2048

	// Предохранитель цикла генерации. При 62^8 кодах повторные коллизии
	// статистически невозможны; лимит срабатывает только при сломанном
	// алфавите или переполненном хранилище.
	maxCreateAttempts = 64

	// Ограничения метаданных клика
	maxIPLength        = 45
	maxUserAgentLength = 500
	maxRefererLength   = 100

	cacheTTLCap = time.Hour
)

// ShortURLService движок жизненного цикла коротких ссылок.
type ShortURLService interface {
	Create(ctx context.Context, input *models.CreateShortURLInput) (*models.ShortURL, error)
	GetByCode(ctx context.Context, code string) (*models.ShortURL, error)
	TrackClick(ctx context.Context, code string, meta *models.ClickMetadata) (*models.ShortURL, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context) ([]models.ShortURL, error)
	ListClicks(ctx context.Context, code string) ([]models.Click, error)
}

type shortURLService struct {
	urlRepo   repository.ShortURLRepository
	clickRepo repository.ClickRepository
	cacheRepo repository.CacheRepository
	generator CodeGenerator
	logger    *zap.Logger
}

func NewShortURLService(
	urlRepo repository.ShortURLRepository,
	clickRepo repository.ClickRepository,
	cacheRepo repository.CacheRepository,
	generator CodeGenerator,
	logger *zap.Logger,
) ShortURLService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &shortURLService{
		urlRepo:   urlRepo,
		clickRepo: clickRepo,
		cacheRepo: cacheRepo,
		generator: generator,
		logger:    logger,
	}
}

// Create проверяет URL и срок действия, подбирает уникальный код и сохраняет запись.
func (s *shortURLService) Create(ctx context.Context, input *models.CreateShortURLInput) (*models.ShortURL, error) {
	if err := validateURL(input.OriginalURL); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	// Срок действия: переданный приводим к UTC, иначе 30 дней от создания
	expiresAt := now.Add(defaultTTL)
	if input.ExpiresAt != nil {
		expiresAt = input.ExpiresAt.UTC()
	}

	// Запас в 5 секунд отсекает уже мёртвые ссылки и гонки у границы
	if !expiresAt.After(now.Add(minExpiryLead)) {
		return nil, ErrInvalidExpiration
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		code, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}

		exists, err := s.urlRepo.CodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		shortURL := &models.ShortURL{
			ID:          uuid.New(),
			ShortCode:   code,
			OriginalURL: input.OriginalURL,
			CreatedAt:   now,
			ExpiresAt:   expiresAt,
			IsActive:    true,
			ClickCount:  0,
		}

		if err := s.urlRepo.Create(ctx, shortURL); err != nil {
			// Параллельное создание успело занять код: пробуем заново
			if errors.Is(err, repository.ErrCodeExists) {
				s.logger.Debug("Коллизия короткого кода, повторная генерация",
					zap.String("code", code),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return nil, err
		}

		s.cacheSet(ctx, shortURL)

		return shortURL, nil
	}

	return nil, fmt.Errorf("short code space exhausted after %d attempts", maxCreateAttempts)
}

// GetByCode возвращает активную запись по коду (сначала кэш, затем БД).
// Истёкшие записи возвращаются: истечение — производное состояние,
// оно запрещает только переходы.
func (s *shortURLService) GetByCode(ctx context.Context, code string) (*models.ShortURL, error) {
	if cached, err := s.cacheRepo.Get(ctx, code); err == nil {
		return cached, nil
	}

	shortURL, err := s.urlRepo.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, shortURL)

	return shortURL, nil
}

// TrackClick регистрирует переход: инкремент счётчика и событие клика
// записываются в одной транзакции. Истёкшая ссылка ничего не мутирует.
func (s *shortURLService) TrackClick(ctx context.Context, code string, meta *models.ClickMetadata) (*models.ShortURL, error) {
	shortURL, err := s.urlRepo.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if shortURL.Expired(now) {
		return nil, ErrExpired
	}

	click := &models.Click{
		ID:         uuid.New(),
		ShortURLID: shortURL.ID,
		ClickedAt:  now,
	}
	if meta != nil {
		click.IPAddress = truncate(meta.IPAddress, maxIPLength)
		click.UserAgent = truncate(meta.UserAgent, maxUserAgentLength)
		click.Referer = truncate(meta.Referer, maxRefererLength)
	}

	updated, err := s.urlRepo.RegisterClick(ctx, click)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, updated)

	return updated, nil
}

// Delete мягко удаляет запись. Повторное удаление и несуществующий id — no-op.
func (s *shortURLService) Delete(ctx context.Context, id uuid.UUID) error {
	code, err := s.urlRepo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if code != "" {
		if err := s.cacheRepo.Delete(ctx, code); err != nil {
			s.logger.Warn("Не удалось инвалидировать кэш",
				zap.String("code", code),
				zap.Error(err),
			)
		}
	}

	return nil
}

// ListActive возвращает активные записи, новые первыми.
func (s *shortURLService) ListActive(ctx context.Context) ([]models.ShortURL, error) {
	return s.urlRepo.ListActive(ctx)
}

// ListClicks возвращает историю переходов активной записи.
func (s *shortURLService) ListClicks(ctx context.Context, code string) ([]models.Click, error) {
	shortURL, err := s.urlRepo.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return s.clickRepo.ListByShortURL(ctx, shortURL.ID)
}

// cacheSet кладёт запись в кэш. Ошибки кэша не прерывают операцию.
func (s *shortURLService) cacheSet(ctx context.Context, shortURL *models.ShortURL) {
	ttl := cacheTTLCap
	if until := time.Until(shortURL.ExpiresAt); until < ttl {
		ttl = until
	}
	if ttl <= 0 {
		return
	}

	if err := s.cacheRepo.Set(ctx, shortURL.ShortCode, shortURL, ttl); err != nil {
		s.logger.Warn("Не удалось записать ссылку в кэш",
			zap.String("code", shortURL.ShortCode),
			zap.Error(err),
		)
	}
}

// validateURL принимает только абсолютные http/https URL длиной до 2048 символов.
func validateURL(rawURL string) error {
	if rawURL == "" || len(rawURL) > maxURLLength {
		return ErrInvalidURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}

	return nil
}

// truncate ограничивает строку n символами (рунами, не байтами).
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
