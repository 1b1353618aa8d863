// Пакет server — HTTP-сервер маркетплейса с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

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

	"github.com/bigkaa/rentstore/internal/api/handlers"
	"github.com/bigkaa/rentstore/internal/api/middleware"
	"github.com/bigkaa/rentstore/internal/config"
)

// Server — HTTP-сервер маркетплейса.
type Server struct {
	httpServer      *http.Server
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// auth — middleware аутентификации (JWT или dev-режим), применяется
// ко всем /api/v1 маршрутам. Health и metrics публичны: их проверяет
// Kubernetes напрямую.
func New(cfg *config.Config, handler *handlers.APIHandler, auth func(http.Handler) http.Handler, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth)

		r.Route("/spaces", func(r chi.Router) {
			r.Post("/", handler.AddSpace)
			r.Get("/", handler.ListSpaces)
			r.Get("/next-id", handler.NextSpaceID)
			r.Get("/my", handler.ListMySpaces)

			r.Route("/{space_id}", func(r chi.Router) {
				r.Get("/", handler.GetSpace)
				r.Get("/quote", handler.QuoteRent)
				r.Post("/rentals", handler.Rent)
				r.Post("/files", handler.UploadFile)
				r.Get("/files", handler.ListSpaceFiles)
			})
		})

		r.Route("/rentals", func(r chi.Router) {
			r.Get("/", handler.ListMyRentals)
			r.Post("/{rental_id}/release", handler.ReleaseRental)
		})

		r.Get("/events", handler.StreamEvents)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:      srv,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
