// Точка входа Marketplace Module — учётное ядро маркетплейса
// пространств хранения. Загружает конфигурацию, подключается к
// PostgreSQL (или поднимает in-memory хранилище), применяет миграции,
// создаёт сервисный слой, запускает фоновое освобождение истёкших
// аренд и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/bigkaa/rentstore/internal/api/handlers"
	"github.com/bigkaa/rentstore/internal/api/middleware"
	"github.com/bigkaa/rentstore/internal/config"
	"github.com/bigkaa/rentstore/internal/database"
	"github.com/bigkaa/rentstore/internal/events"
	"github.com/bigkaa/rentstore/internal/repository"
	"github.com/bigkaa/rentstore/internal/repository/memory"
	"github.com/bigkaa/rentstore/internal/server"
	"github.com/bigkaa/rentstore/internal/service"
	"github.com/bigkaa/rentstore/internal/sidecar"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Marketplace Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store", cfg.Store),
	)

	ctx := context.Background()

	// 3. Хранилище: PostgreSQL или in-memory (dev-режим)
	var (
		spaces  repository.StorageSpaceRepository
		rentals repository.RentalRepository
		files   repository.FileRecordRepository
		ready   []handlers.ReadinessChecker
	)

	switch cfg.Store {
	case config.StorePostgres:
		// 3.1 Применение миграций БД
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// 3.2 Подключение к PostgreSQL (pgxpool)
		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		spaces = repository.NewStorageSpaceRepository(pool)
		rentals = repository.NewRentalRepository(pool)
		files = repository.NewFileRecordRepository(pool)
		ready = append(ready, database.NewReadinessChecker(pool))

	case config.StoreMemory:
		logger.Warn("Используется in-memory хранилище, данные не переживут перезапуск")
		store := memory.NewStore()
		spaces = store.Spaces()
		rentals = store.Rentals()
		files = store.Files()
	}

	// 4. Шина событий
	bus := events.NewBus()

	// 5. Клиент Upload Sidecar
	sidecarClient := sidecar.NewClient(cfg.SidecarURL, cfg.SidecarTimeout, logger)
	ready = append(ready, sidecarClient)

	// 6. Сервисный слой
	ledger := service.NewCapacityLedger(spaces, bus, logger)
	registry := service.NewRentalRegistry(ledger, rentals, files, bus, logger)
	mp := service.NewMarketplace(ledger, registry, sidecarClient, bus, cfg.CacheSize, cfg.CacheTTL, logger)

	// 7. Фоновое освобождение истёкших аренд
	sweeper := service.NewExpirySweeper(registry, cfg.ExpiryInterval, cfg.ExpiryBatchSize, logger)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// 8. Аутентификация: JWT через JWKS или dev-режим
	var auth func(http.Handler) http.Handler
	if cfg.JWTJWKSURL != "" {
		jwtAuth, err := middleware.NewJWTAuth(
			cfg.JWTJWKSURL, cfg.JWTIssuer,
			cfg.JWKSRefreshInterval, cfg.JWTLeeway,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка инициализации JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		auth = jwtAuth.Middleware()
		logger.Info("JWT-аутентификация включена", slog.String("jwks_url", cfg.JWTJWKSURL))
	} else {
		auth = middleware.DevAuth()
		logger.Warn("MP_JWT_JWKS_URL не задан, аккаунт берётся из заголовка X-Account без проверки")
	}

	// 9. API handlers и HTTP-сервер
	apiHandler := handlers.NewAPIHandler(mp, bus, ready, logger)
	srv := server.New(cfg, apiHandler, auth, logger)

	// 10. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Marketplace Module остановлен")
}
