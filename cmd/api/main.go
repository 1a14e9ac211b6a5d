package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anchorzup/url-shortener/internal/config"
	"github.com/anchorzup/url-shortener/internal/handler"
	"github.com/anchorzup/url-shortener/internal/repository"
	"github.com/anchorzup/url-shortener/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Создание схемы при первом запуске
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.InitSchema(ctx); err != nil {
		cancel()
		logger.Fatal("Failed to init schema", zap.Error(err))
	}
	cancel()

	// Подключение к Redis
	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	logger.Info("Connected to Redis")

	// Инициализация репозиториев
	urlRepo := repository.NewShortURLRepository(db)
	clickRepo := repository.NewClickRepository(db)
	cacheRepo := repository.NewCacheRepository(redis)

	// Инициализация сервисов
	shortURLService := service.NewShortURLService(urlRepo, clickRepo, cacheRepo, service.NewCodeGenerator(), logger)
	qrService := service.NewQRCodeService()

	// Настройка роутера
	router := handler.NewRouter(shortURLService, qrService, cfg.App.BaseURL, logger)

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
