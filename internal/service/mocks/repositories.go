package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anchorzup/url-shortener/internal/models"
	"github.com/anchorzup/url-shortener/internal/repository"
	"github.com/google/uuid"
)

// MockShortURLRepository реализует repository.ShortURLRepository для тестов.
// Поведение повторяет постгрес: частичный уникальный индекс по активным кодам,
// атомарный инкремент счётчика, клики пишутся вместе с инкрементом.
type MockShortURLRepository struct {
	mu     sync.RWMutex
	urls   map[uuid.UUID]*models.ShortURL
	clicks map[uuid.UUID][]*models.Click
}

func NewMockShortURLRepository() *MockShortURLRepository {
	return &MockShortURLRepository{
		urls:   make(map[uuid.UUID]*models.ShortURL),
		clicks: make(map[uuid.UUID][]*models.Click),
	}
}

func (m *MockShortURLRepository) Create(ctx context.Context, url *models.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.urls {
		if existing.IsActive && existing.ShortCode == url.ShortCode {
			return repository.ErrCodeExists
		}
	}

	clone := *url
	m.urls[url.ID] = &clone
	return nil
}

func (m *MockShortURLRepository) GetActiveByCode(ctx context.Context, code string) (*models.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, url := range m.urls {
		if url.IsActive && url.ShortCode == code {
			clone := *url
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockShortURLRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, url := range m.urls {
		if url.IsActive && url.ShortCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockShortURLRepository) ListActive(ctx context.Context) ([]models.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var urls []models.ShortURL
	for _, url := range m.urls {
		if url.IsActive {
			urls = append(urls, *url)
		}
	}

	sort.Slice(urls, func(i, j int) bool {
		if !urls[i].CreatedAt.Equal(urls[j].CreatedAt) {
			return urls[i].CreatedAt.After(urls[j].CreatedAt)
		}
		return urls[i].ID.String() > urls[j].ID.String()
	})

	return urls, nil
}

func (m *MockShortURLRepository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, exists := m.urls[id]
	if !exists || !url.IsActive {
		return "", nil
	}

	url.IsActive = false
	return url.ShortCode, nil
}

func (m *MockShortURLRepository) RegisterClick(ctx context.Context, click *models.Click) (*models.ShortURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	url, exists := m.urls[click.ShortURLID]
	if !exists || !url.IsActive {
		return nil, repository.ErrNotFound
	}

	url.ClickCount++
	accessedAt := click.ClickedAt
	url.LastAccessedAt = &accessedAt

	clone := *click
	m.clicks[click.ShortURLID] = append(m.clicks[click.ShortURLID], &clone)

	result := *url
	return &result, nil
}

// Seed кладёт запись в хранилище напрямую, минуя проверки сервиса.
func (m *MockShortURLRepository) Seed(url *models.ShortURL) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *url
	m.urls[url.ID] = &clone
}

func (m *MockShortURLRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = make(map[uuid.UUID]*models.ShortURL)
	m.clicks = make(map[uuid.UUID][]*models.Click)
}

// MockClickRepository реализует repository.ClickRepository поверх хранилища
// MockShortURLRepository: клики, записанные через RegisterClick, видны здесь,
// как и в настоящей БД.
type MockClickRepository struct {
	store *MockShortURLRepository
}

func NewMockClickRepository(store *MockShortURLRepository) *MockClickRepository {
	return &MockClickRepository{store: store}
}

func (m *MockClickRepository) ListByShortURL(ctx context.Context, shortURLID uuid.UUID) ([]models.Click, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	var clicks []models.Click
	for _, click := range m.store.clicks[shortURLID] {
		clicks = append(clicks, *click)
	}

	sort.Slice(clicks, func(i, j int) bool {
		return clicks[i].ClickedAt.After(clicks[j].ClickedAt)
	})

	return clicks, nil
}

func (m *MockClickRepository) CountByShortURL(ctx context.Context, shortURLID uuid.UUID) (int64, error) {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return int64(len(m.store.clicks[shortURLID])), nil
}

// MockCacheRepository реализует repository.CacheRepository для тестов.
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]*models.ShortURL
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]*models.ShortURL),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (*models.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	url, exists := m.cache[code]
	if !exists {
		return nil, repository.ErrNotFound
	}
	clone := *url
	return &clone, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, code string, url *models.ShortURL, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *url
	m.cache[code] = &clone
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, code)
	return nil
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]*models.ShortURL)
}
