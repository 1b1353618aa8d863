// Точка входа Upload Sidecar — приём файлов и контент-адресуемое
// хранение на диске. Возвращает маркетплейсу хэш содержимого;
// учёт загрузок ведёт Marketplace Module.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/rentstore/internal/api/middleware"
	"github.com/bigkaa/rentstore/internal/blobstore"
	"github.com/bigkaa/rentstore/internal/config"
	"github.com/bigkaa/rentstore/internal/sidecar"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.LoadSidecar()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Upload Sidecar запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
	)

	// 3. Контент-адресуемое хранилище блобов
	store, err := blobstore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. HTTP handlers и маршруты
	handler := sidecar.NewHandler(store, cfg.MaxUploadBytes, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestLogger(logger))
	router.Post("/upload", handler.Upload)
	router.Get("/health", handler.Health)
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Minute, // загрузка больших файлов
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 5. Запуск сервера и ожидание сигнала завершения
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP-сервер запущен", slog.String("addr", srv.Addr))
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("Ошибка сервера", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// 6. Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	logger.Info("Выполняется graceful shutdown...")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Ошибка при graceful shutdown", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Upload Sidecar остановлен")
}
