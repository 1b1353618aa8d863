// Пакет config — загрузка и валидация конфигурации Marketplace Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Режимы хранилища состояния маркетплейса.
const (
	// StorePostgres — авторитетное состояние в PostgreSQL.
	StorePostgres = "postgres"
	// StoreMemory — in-memory хранилище (dev-режим и тесты).
	StoreMemory = "memory"
)

// Config содержит все параметры конфигурации Marketplace Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Хранилище ---

	// Режим хранилища: postgres или memory
	Store string
	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Upload Sidecar ---

	// Базовый URL Upload Sidecar
	SidecarURL string
	// Таймаут запросов к sidecar
	SidecarTimeout time.Duration

	// --- JWT ---

	// URL JWKS endpoint провайдера идентичности.
	// Пустое значение — аутентификация отключена (dev-режим),
	// аккаунт берётся из заголовка X-Account.
	JWTJWKSURL string
	// Ожидаемый issuer JWT (опционально)
	JWTIssuer string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration

	// --- Кэш списка доступных пространств ---

	// Максимальное количество записей в LRU-кэше
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- Фоновое освобождение истёкших аренд ---

	// Интервал обхода истёкших аренд (0 — фоновый обход отключён,
	// корректность чтений обеспечивается ленивым истечением)
	ExpiryInterval time.Duration
	// Максимум аренд, освобождаемых за один обход
	ExpiryBatchSize int

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// MP_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("MP_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("MP_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MP_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// MP_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MP_LOG_LEVEL: %w", err)
	}

	// MP_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MP_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MP_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Хранилище ---

	// MP_STORE — режим хранилища (по умолчанию postgres)
	cfg.Store = getEnvDefault("MP_STORE", StorePostgres)
	if cfg.Store != StorePostgres && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("MP_STORE: недопустимое значение %q, допустимые: postgres, memory", cfg.Store)
	}

	if cfg.Store == StorePostgres {
		// MP_DB_HOST — обязательный
		cfg.DBHost, err = getEnvRequired("MP_DB_HOST")
		if err != nil {
			return nil, err
		}

		// MP_DB_PORT — порт PostgreSQL (по умолчанию 5432)
		cfg.DBPort, err = getEnvInt("MP_DB_PORT", 5432)
		if err != nil {
			return nil, fmt.Errorf("MP_DB_PORT: %w", err)
		}

		// MP_DB_NAME — обязательный
		cfg.DBName, err = getEnvRequired("MP_DB_NAME")
		if err != nil {
			return nil, err
		}

		// MP_DB_USER — обязательный
		cfg.DBUser, err = getEnvRequired("MP_DB_USER")
		if err != nil {
			return nil, err
		}

		// MP_DB_PASSWORD — обязательный
		cfg.DBPassword, err = getEnvRequired("MP_DB_PASSWORD")
		if err != nil {
			return nil, err
		}

		// MP_DB_SSL_MODE — режим SSL (по умолчанию disable)
		cfg.DBSSLMode = getEnvDefault("MP_DB_SSL_MODE", "disable")
		validSSLModes := map[string]bool{
			"disable": true, "require": true, "verify-ca": true, "verify-full": true,
		}
		if !validSSLModes[cfg.DBSSLMode] {
			return nil, fmt.Errorf("MP_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
		}
	}

	// --- Upload Sidecar ---

	// MP_SIDECAR_URL — базовый URL sidecar (по умолчанию локальный)
	cfg.SidecarURL = strings.TrimRight(getEnvDefault("MP_SIDECAR_URL", "http://localhost:8081"), "/")

	// MP_SIDECAR_TIMEOUT — таймаут запросов к sidecar (по умолчанию 30s)
	cfg.SidecarTimeout, err = getEnvDuration("MP_SIDECAR_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MP_SIDECAR_TIMEOUT: %w", err)
	}

	// --- JWT ---

	// MP_JWT_JWKS_URL — URL JWKS (пустое — аутентификация отключена)
	cfg.JWTJWKSURL = getEnvDefault("MP_JWT_JWKS_URL", "")

	// MP_JWT_ISSUER — ожидаемый issuer (опционально)
	cfg.JWTIssuer = getEnvDefault("MP_JWT_ISSUER", "")

	// MP_JWT_LEEWAY — отклонение времени при проверке JWT (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("MP_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MP_JWT_LEEWAY: %w", err)
	}

	// MP_JWKS_REFRESH_INTERVAL — интервал обновления ключей (по умолчанию 1h)
	cfg.JWKSRefreshInterval, err = getEnvDuration("MP_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MP_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Кэш ---

	// MP_CACHE_SIZE — размер LRU-кэша (по умолчанию 128)
	cfg.CacheSize, err = getEnvInt("MP_CACHE_SIZE", 128)
	if err != nil {
		return nil, fmt.Errorf("MP_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("MP_CACHE_SIZE: значение %d должно быть положительным", cfg.CacheSize)
	}

	// MP_CACHE_TTL — TTL кэша (по умолчанию 5s)
	cfg.CacheTTL, err = getEnvDuration("MP_CACHE_TTL", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MP_CACHE_TTL: %w", err)
	}

	// --- Фоновое освобождение ---

	// MP_EXPIRY_INTERVAL — интервал обхода истёкших аренд (по умолчанию 1m)
	cfg.ExpiryInterval, err = getEnvDuration("MP_EXPIRY_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MP_EXPIRY_INTERVAL: %w", err)
	}

	// MP_EXPIRY_BATCH_SIZE — размер пакета за обход (по умолчанию 100)
	cfg.ExpiryBatchSize, err = getEnvInt("MP_EXPIRY_BATCH_SIZE", 100)
	if err != nil {
		return nil, fmt.Errorf("MP_EXPIRY_BATCH_SIZE: %w", err)
	}
	if cfg.ExpiryBatchSize < 1 || cfg.ExpiryBatchSize > 10000 {
		return nil, fmt.Errorf("MP_EXPIRY_BATCH_SIZE: значение %d вне допустимого диапазона 1-10000", cfg.ExpiryBatchSize)
	}

	// --- Graceful shutdown ---

	// MP_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("MP_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MP_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 из переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
