package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/anchorzup/url-shortener/internal/models"
	"github.com/anchorzup/url-shortener/internal/repository"
	"github.com/anchorzup/url-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ShortURLHandler struct {
	service service.ShortURLService
	qr      service.QRCodeService
	baseURL string
	logger  *zap.Logger
}

func NewShortURLHandler(svc service.ShortURLService, qr service.QRCodeService, baseURL string, logger *zap.Logger) *ShortURLHandler {
	return &ShortURLHandler{
		service: svc,
		qr:      qr,
		baseURL: baseURL,
		logger:  logger,
	}
}

type CreateShortURLRequest struct {
	OriginalURL string     `json:"original_url" binding:"required"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type ShortURLResponse struct {
	ID             uuid.UUID  `json:"id"`
	OriginalURL    string     `json:"original_url"`
	ShortURL       string     `json:"short_url"`
	ShortCode      string     `json:"short_code"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ClickCount     int64      `json:"click_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	QRCodeBase64   string     `json:"qr_code_base64,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// toResponse собирает DTO: полный короткий адрес и QR-код считаются от baseURL.
func (h *ShortURLHandler) toResponse(url *models.ShortURL, withQR bool) ShortURLResponse {
	resp := ShortURLResponse{
		ID:             url.ID,
		OriginalURL:    url.OriginalURL,
		ShortURL:       h.baseURL + url.ShortCode,
		ShortCode:      url.ShortCode,
		CreatedAt:      url.CreatedAt,
		ExpiresAt:      url.ExpiresAt,
		ClickCount:     url.ClickCount,
		LastAccessedAt: url.LastAccessedAt,
	}

	if withQR {
		qr, err := h.qr.EncodeBase64(resp.ShortURL, 0)
		if err != nil {
			h.logger.Warn("Не удалось сгенерировать QR-код",
				zap.String("code", url.ShortCode),
				zap.Error(err),
			)
		} else {
			resp.QRCodeBase64 = qr
		}
	}

	return resp
}

// CreateShortURL обрабатывает POST /api/v1/urls
func (h *ShortURLHandler) CreateShortURL(c *gin.Context) {
	var req CreateShortURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	input := &models.CreateShortURLInput{
		OriginalURL: req.OriginalURL,
		ExpiresAt:   req.ExpiresAt,
	}

	shortURL, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err, "Failed to create short url")
		return
	}

	c.JSON(http.StatusCreated, h.toResponse(shortURL, true))
}

// ListShortURLs обрабатывает GET /api/v1/urls
func (h *ShortURLHandler) ListShortURLs(c *gin.Context) {
	urls, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to list short urls")
		return
	}

	responses := make([]ShortURLResponse, 0, len(urls))
	for i := range urls {
		responses = append(responses, h.toResponse(&urls[i], true))
	}

	c.JSON(http.StatusOK, responses)
}

// DeleteShortURL обрабатывает DELETE /api/v1/urls/:id
func (h *ShortURLHandler) DeleteShortURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "ID must be a valid UUID",
		})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "Failed to delete short url")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListClicks обрабатывает GET /api/v1/urls/:code/clicks
func (h *ShortURLHandler) ListClicks(c *gin.Context) {
	code := c.Param("code")

	clicks, err := h.service.ListClicks(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, err, "Failed to list clicks")
		return
	}

	if clicks == nil {
		clicks = []models.Click{}
	}

	c.JSON(http.StatusOK, clicks)
}

// GetQRCode обрабатывает GET /api/v1/urls/:code/qr
func (h *ShortURLHandler) GetQRCode(c *gin.Context) {
	code := c.Param("code")

	// Код должен существовать, иначе QR вёл бы на мёртвую ссылку
	shortURL, err := h.service.GetByCode(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, err, "Failed to generate qr code")
		return
	}

	png, err := h.qr.Encode(h.baseURL+shortURL.ShortCode, 0)
	if err != nil {
		h.respondError(c, err, "Failed to generate qr code")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// Redirect обрабатывает GET /:code — переход по короткой ссылке.
// Регистрирует клик и отправляет 302 на исходный адрес.
func (h *ShortURLHandler) Redirect(c *gin.Context) {
	code := c.Param("code")

	meta := &models.ClickMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
	}

	shortURL, err := h.service.TrackClick(c.Request.Context(), code, meta)
	if err != nil {
		h.respondError(c, err, "Failed to redirect")
		return
	}

	c.Redirect(http.StatusFound, shortURL.OriginalURL)
}

// HealthCheck обрабатывает GET /api/v1/health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError транслирует ошибки сервиса в HTTP-статусы:
// ошибки пользователя — 400/404/410, остальное — непрозрачный 500.
func (h *ShortURLHandler) respondError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrInvalidURL):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_url",
			Message: "URL must be absolute with http or https scheme",
		})
	case errors.Is(err, service.ErrInvalidExpiration):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_expiration",
			Message: "Expiration must be at least 5 seconds in the future",
		})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Short URL not found",
		})
	case errors.Is(err, service.ErrExpired):
		c.JSON(http.StatusGone, ErrorResponse{
			Error:   "expired",
			Message: "Short URL has expired",
		})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
}
