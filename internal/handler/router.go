package handler

import (
	"github.com/anchorzup/url-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(
	shortURLService service.ShortURLService,
	qrService service.QRCodeService,
	baseURL string,
	logger *zap.Logger,
) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Middleware для логгирования
	router.Use(func(c *gin.Context) {
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
		)
		c.Next()
	})

	h := NewShortURLHandler(shortURLService, qrService, baseURL, logger)

	// API v.1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", HealthCheck)

		v1.POST("/urls", h.CreateShortURL)
		v1.GET("/urls", h.ListShortURLs)
		v1.DELETE("/urls/:id", h.DeleteShortURL)
		v1.GET("/urls/:code/clicks", h.ListClicks)
		v1.GET("/urls/:code/qr", h.GetQRCode)
	}

	// Редирект (корневой путь)
	router.GET("/:code", h.Redirect)

	return router
}
