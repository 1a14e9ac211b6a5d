package service_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anchorzup/url-shortener/internal/models"
	"github.com/anchorzup/url-shortener/internal/repository"
	"github.com/anchorzup/url-shortener/internal/service"
	"github.com/anchorzup/url-shortener/internal/service/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const codeCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// setupTestService создаёт тестовое окружение с моковыми репозиториями
func setupTestService() (service.ShortURLService, *mocks.MockShortURLRepository, *mocks.MockCacheRepository) {
	urlRepo := mocks.NewMockShortURLRepository()
	clickRepo := mocks.NewMockClickRepository(urlRepo)
	cacheRepo := mocks.NewMockCacheRepository()
	logger, _ := zap.NewDevelopment()
	svc := service.NewShortURLService(urlRepo, clickRepo, cacheRepo, service.NewCodeGenerator(), logger)
	return svc, urlRepo, cacheRepo
}

// seedShortURL кладёт запись напрямую в моковое хранилище
func seedShortURL(repo *mocks.MockShortURLRepository, code string, expiresAt time.Time, active bool) *models.ShortURL {
	url := &models.ShortURL{
		ID:          uuid.New(),
		ShortCode:   code,
		OriginalURL: "https://example.com/seeded",
		CreatedAt:   time.Now().UTC().Add(-time.Hour),
		ExpiresAt:   expiresAt,
		IsActive:    active,
	}
	repo.Seed(url)
	return url
}

// TestShortURLService_Create_Success проверяет успешное создание ссылки
func TestShortURLService_Create_Success(t *testing.T) {
	svc, _, _ := setupTestService()

	before := time.Now().UTC()
	url, err := svc.Create(context.Background(), &models.CreateShortURLInput{
		OriginalURL: "https://example.com/page",
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, url.ID)
	assert.Equal(t, "https://example.com/page", url.OriginalURL)
	assert.Len(t, url.ShortCode, 8)
	for _, r := range url.ShortCode {
		assert.Contains(t, codeCharset, string(r), "код должен состоять из base62 алфавита")
	}
	assert.Equal(t, int64(0), url.ClickCount)
	assert.Nil(t, url.LastAccessedAt)
	assert.True(t, url.IsActive)

	// Срок действия по умолчанию — 30 дней от создания
	expectedExpiry := before.Add(30 * 24 * time.Hour)
	assert.WithinDuration(t, expectedExpiry, url.ExpiresAt, time.Minute)
}

// TestShortURLService_Create_InvalidURL проверяет отклонение невалидных URL
func TestShortURLService_Create_InvalidURL(t *testing.T) {
	svc, _, _ := setupTestService()

	invalidURLs := []string{
		"",
		"not-a-url",
		"example.com",
		"ftp://example.com/file",
		"//example.com/no-scheme",
		"https://",
		"https://" + strings.Repeat("a", 2050), // длиннее 2048
	}

	for _, rawURL := range invalidURLs {
		url, err := svc.Create(context.Background(), &models.CreateShortURLInput{
			OriginalURL: rawURL,
		})

		assert.ErrorIs(t, err, service.ErrInvalidURL, "URL должен быть отклонён: %q", rawURL)
		assert.Nil(t, url)
	}

	// Невалидный URL не должен ничего сохранять
	urls, err := svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, urls)
}

// TestShortURLService_Create_WithExpiration проверяет создание с явным сроком действия
func TestShortURLService_Create_WithExpiration(t *testing.T) {
	svc, _, _ := setupTestService()

	expiresAt := time.Now().Add(time.Hour)
	url, err := svc.Create(context.Background(), &models.CreateShortURLInput{
		OriginalURL: "https://example.com/page",
		ExpiresAt:   &expiresAt,
	})

	require.NoError(t, err)
	assert.Equal(t, time.UTC, url.ExpiresAt.Location())
	assert.WithinDuration(t, expiresAt.UTC(), url.ExpiresAt, time.Second)
}

// TestShortURLService_Create_ExpirationTooSoon проверяет границу "сейчас + 5 секунд"
func TestShortURLService_Create_ExpirationTooSoon(t *testing.T) {
	svc, _, _ := setupTestService()

	// Внутри пятисекундного запаса, в прошлом и ровно сейчас
	cases := []time.Duration{4 * time.Second, -time.Minute, 0}

	for _, d := range cases {
		expiresAt := time.Now().UTC().Add(d)
		url, err := svc.Create(context.Background(), &models.CreateShortURLInput{
			OriginalURL: "https://example.com/page",
			ExpiresAt:   &expiresAt,
		})

		assert.ErrorIs(t, err, service.ErrInvalidExpiration, "срок %v должен быть отклонён", d)
		assert.Nil(t, url)
	}

	// 10 секунд — за пределами запаса, создание проходит
	expiresAt := time.Now().UTC().Add(10 * time.Second)
	url, err := svc.Create(context.Background(), &models.CreateShortURLInput{
		OriginalURL: "https://example.com/page",
		ExpiresAt:   &expiresAt,
	})
	require.NoError(t, err)
	assert.NotNil(t, url)
}

// TestShortURLService_Create_CollisionRetry проверяет повторную генерацию при коллизии
func TestShortURLService_Create_CollisionRetry(t *testing.T) {
	urlRepo := mocks.NewMockShortURLRepository()
	clickRepo := mocks.NewMockClickRepository(urlRepo)
	cacheRepo := mocks.NewMockCacheRepository()

	// Генератор, который сначала выдаёт занятый код
	taken := "AAAAAAAA"
	gen := &sequenceGenerator{codes: []string{taken, taken, "BBBBBBBB"}}
	svc := service.NewShortURLService(urlRepo, clickRepo, cacheRepo, gen, nil)

	seedShortURL(urlRepo, taken, time.Now().UTC().Add(time.Hour), true)

	url, err := svc.Create(context.Background(), &models.CreateShortURLInput{
		OriginalURL: "https://example.com/page",
	})

	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", url.ShortCode, "коллизия должна разрешаться новым кодом, не ошибкой")
}

// TestShortURLService_GetByCode_RoundTrip проверяет чтение созданной записи
func TestShortURLService_GetByCode_RoundTrip(t *testing.T) {
	svc, _, _ := setupTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &models.CreateShortURLInput{
		OriginalURL: "https://example.com/page",
	})
	require.NoError(t, err)

	got, err := svc.GetByCode(ctx, created.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, created.OriginalURL, got.OriginalURL)
	assert.Equal(t, created.ShortCode, got.ShortCode)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, created.ExpiresAt.Equal(got.ExpiresAt))
}

// TestShortURLService_GetByCode_NotFound проверяет неизвестный код
func TestShortURLService_GetByCode_NotFound(t *testing.T) {
	svc, _, _ := setupTestService()

	url, err := svc.GetByCode(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Nil(t, url)
}

// TestShortURLService_GetByCode_ExpiredStillReadable проверяет, что истёкшая
// запись остаётся читаемой: истечение запрещает только переходы
func TestShortURLService_GetByCode_ExpiredStillReadable(t *testing.T) {
	svc, urlRepo, _ := setupTestService()

	seeded := seedShortURL(urlRepo, "expired1", time.Now().UTC().Add(-time.Hour), true)

	got, err := svc.GetByCode(context.Background(), seeded.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)
}

// TestShortURLService_TrackClick_Accounting проверяет счётчик и события кликов
func TestShortURLService_TrackClick_Accounting(t *testing.T) {
	svc, _, _ := setupTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &models.CreateShortURLInput{
		OriginalURL: "https://example.com/page",
	})
	require.NoError(t, err)

	const n = 5
	var last *models.ShortURL
	for i := 0; i < n; i++ {
		last, err = svc.TrackClick(ctx, created.ShortCode, &models.ClickMetadata{
			IPAddress: fmt.Sprintf("10.0.0.%d", i+1),
			UserAgent: "test-agent",
			Referer:   "https://referrer.example.com",
		})
		require.NoError(t, err)
	}

	assert.Equal(t, int64(n), last.ClickCount, "после N переходов счётчик равен N")
	require.NotNil(t, last.LastAccessedAt)
	assert.WithinDuration(t, time.Now().UTC(), *last.LastAccessedAt, time.Minute)

	clicks, err := svc.ListClicks(ctx, created.ShortCode)
	require.NoError(t, err)
	require.Len(t, clicks, n, "каждому переходу соответствует ровно одно событие")
	for _, click := range clicks {
		assert.Equal(t, created.ID, click.ShortURLID)
		assert.Equal(t, "test-agent", click.UserAgent)
	}
}

// TestShortURLService_TrackClick_Expired проверяет отказ для истёкшей ссылки
func TestShortURLService_TrackClick_Expired(t *testing.T) {
	svc, urlRepo, _ := setupTestService()
	ctx := context.Background()

	seeded := seedShortURL(urlRepo, "expired2", time.Now().UTC().Add(-time.Second), true)

	url, err := svc.TrackClick(ctx, seeded.ShortCode, nil)
	assert.ErrorIs(t, err, service.ErrExpired)
	assert.Nil(t, url)

	// Счётчик не изменился, событий нет
	got, err := svc.GetByCode(ctx, seeded.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ClickCount)

	clicks, err := svc.ListClicks(ctx, seeded.ShortCode)
	require.NoError(t, err)
	assert.Empty(t, clicks)
}

// TestShortURLService_TrackClick_NotFound проверяет неизвестный и неактивный код
func TestShortURLService_TrackClick_NotFound(t *testing.T) {
	svc, urlRepo, _ := setupTestService()
	ctx := context.Background()

	_, err := svc.TrackClick(ctx, "nonexistent", nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Мягко удалённая запись тоже NotFound, не Expired
	seeded := seedShortURL(urlRepo, "deleted1", time.Now().UTC().Add(time.Hour), false)
	_, err = svc.TrackClick(ctx, seeded.ShortCode, nil)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestShortURLService_TrackClick_TruncatesMetadata проверяет ограничения 45/500/100
func TestShortURLService_TrackClick_TruncatesMetadata(t *testing.T) {
	svc, _, _ := setupTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &models.CreateShortURLInput{
		OriginalURL: "https://example.com/page",
	})
	require.NoError(t, err)

	_, err = svc.TrackClick(ctx, created.ShortCode, &models.ClickMetadata{
		IPAddress: strings.Repeat("1", 60),
		UserAgent: strings.Repeat("u", 600),
		Referer:   strings.Repeat("r", 150),
	})
	require.NoError(t, err)

	clicks, err := svc.ListClicks(ctx, created.ShortCode)
	require.NoError(t, err)
	require.Len(t, clicks, 1)
	assert.Len(t, clicks[0].IPAddress, 45)
	assert.Len(t, clicks[0].UserAgent, 500)
	assert.Len(t, clicks[0].Referer, 100)
}

// TestShortURLService_Delete_Idempotent проверяет мягкое удаление
func TestShortURLService_Delete_Idempotent(t *testing.T) {
	svc, _, cacheRepo := setupTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &models.CreateShortURLInput{
		OriginalURL: "https://example.com/page",
	})
	require.NoError(t, err)

	// Немного истории перед удалением
	_, err = svc.TrackClick(ctx, created.ShortCode, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	// Запись исчезла из всех чтений
	_, err = svc.GetByCode(ctx, created.ShortCode)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = cacheRepo.Get(ctx, created.ShortCode)
	assert.Error(t, err, "кэш должен быть инвалидирован")

	urls, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, urls)

	// Повторное удаление и незнакомый id — no-op, не ошибка
	assert.NoError(t, svc.Delete(ctx, created.ID))
	assert.NoError(t, svc.Delete(ctx, uuid.New()))
}

// TestShortURLService_ListActive_Ordering проверяет порядок: новые первыми
func TestShortURLService_ListActive_Ordering(t *testing.T) {
	svc, urlRepo, _ := setupTestService()
	ctx := context.Background()

	now := time.Now().UTC()
	oldest := seedShortURL(urlRepo, "code0001", now.Add(48*time.Hour), true)
	oldest.CreatedAt = now.Add(-3 * time.Hour)
	urlRepo.Seed(oldest)

	middle := seedShortURL(urlRepo, "code0002", now.Add(48*time.Hour), true)
	middle.CreatedAt = now.Add(-2 * time.Hour)
	urlRepo.Seed(middle)

	newest := seedShortURL(urlRepo, "code0003", now.Add(48*time.Hour), true)
	newest.CreatedAt = now.Add(-time.Hour)
	urlRepo.Seed(newest)

	// Неактивная запись в выдачу не попадает
	seedShortURL(urlRepo, "code0004", now.Add(48*time.Hour), false)

	urls, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, urls, 3)
	assert.Equal(t, newest.ShortCode, urls[0].ShortCode)
	assert.Equal(t, middle.ShortCode, urls[1].ShortCode)
	assert.Equal(t, oldest.ShortCode, urls[2].ShortCode)
}

// TestShortURLService_ConcurrentCreate проверяет уникальность кодов под нагрузкой
func TestShortURLService_ConcurrentCreate(t *testing.T) {
	svc, _, _ := setupTestService()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	codes := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			url, err := svc.Create(ctx, &models.CreateShortURLInput{
				OriginalURL: fmt.Sprintf("https://example.com/page/%d", id),
			})
			assert.NoError(t, err)
			if url != nil {
				codes <- url.ShortCode
			}
		}(i)
	}

	wg.Wait()
	close(codes)

	seen := make(map[string]bool)
	for code := range codes {
		assert.False(t, seen[code], "коды активных записей не должны повторяться")
		seen[code] = true
	}
	assert.Len(t, seen, workers)
}

// TestShortURLService_Scenario проверяет сценарий create → click → delete
func TestShortURLService_Scenario(t *testing.T) {
	svc, _, _ := setupTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, &models.CreateShortURLInput{
		OriginalURL: "https://example.com/page",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), created.ClickCount)
	assert.WithinDuration(t, time.Now().UTC().Add(30*24*time.Hour), created.ExpiresAt, time.Minute)

	clicked, err := svc.TrackClick(ctx, created.ShortCode, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), clicked.ClickCount)
	require.NotNil(t, clicked.LastAccessedAt)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.GetByCode(ctx, created.ShortCode)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// sequenceGenerator детерминированный генератор для тестов коллизий
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next >= len(g.codes) {
		return g.codes[len(g.codes)-1], nil
	}
	code := g.codes[g.next]
	g.next++
	return code, nil
}
