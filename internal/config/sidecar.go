// sidecar.go — конфигурация Upload Sidecar.
package config

import (
	"fmt"
	"log/slog"
	"time"
)

// SidecarConfig содержит параметры конфигурации Upload Sidecar.
type SidecarConfig struct {
	// Порт HTTP-сервера sidecar
	Port int
	// Уровень логирования
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Каталог хранения загруженных файлов
	DataDir string
	// Максимальный размер загружаемого файла в байтах
	MaxUploadBytes int64
	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration
}

// LoadSidecar загружает конфигурацию Upload Sidecar из переменных окружения.
func LoadSidecar() (*SidecarConfig, error) {
	cfg := &SidecarConfig{}
	var err error

	// SC_PORT — порт HTTP-сервера (по умолчанию 8081)
	cfg.Port, err = getEnvInt("SC_PORT", 8081)
	if err != nil {
		return nil, fmt.Errorf("SC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// SC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SC_LOG_LEVEL: %w", err)
	}

	// SC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SC_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// SC_DATA_DIR — каталог хранения файлов (обязательный)
	cfg.DataDir, err = getEnvRequired("SC_DATA_DIR")
	if err != nil {
		return nil, err
	}

	// SC_MAX_UPLOAD_BYTES — максимальный размер файла (по умолчанию 1 GiB)
	cfg.MaxUploadBytes, err = getEnvInt64("SC_MAX_UPLOAD_BYTES", 1<<30)
	if err != nil {
		return nil, fmt.Errorf("SC_MAX_UPLOAD_BYTES: %w", err)
	}
	if cfg.MaxUploadBytes < 1 {
		return nil, fmt.Errorf("SC_MAX_UPLOAD_BYTES: значение %d должно быть положительным", cfg.MaxUploadBytes)
	}

	// SC_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("SC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}
