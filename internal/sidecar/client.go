// client.go — HTTP-клиент маркетплейса к Upload Sidecar.
package sidecar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Client — HTTP-клиент к Upload Sidecar. Загрузка выполняется
// streaming: тело запроса собирается через io.Pipe без буферизации
// файла в памяти.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient создаёт клиент Upload Sidecar.
// baseURL — базовый URL sidecar (например, http://sidecar:8081).
// timeout — таймаут HTTP-запросов (из конфигурации MP_SIDECAR_TIMEOUT).
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// Пул idle-соединений для переиспользования
				MaxIdleConnsPerHost: 10,
			},
		},
		logger: logger.With(slog.String("component", "sidecar-client")),
	}
}

// Upload загружает файл в sidecar и возвращает хэш содержимого и размер.
// Формат запроса: POST {baseURL}/upload, multipart поле file.
func (c *Client) Upload(ctx context.Context, filename string, data io.Reader) (string, int64, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, data); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		return "", 0, fmt.Errorf("создание запроса Upload: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("запрос к sidecar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("Sidecar вернул ошибку",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return "", 0, fmt.Errorf("sidecar вернул статус %d", resp.StatusCode)
	}

	var uploadResp UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", 0, fmt.Errorf("декодирование ответа sidecar: %w", err)
	}
	if uploadResp.ContentHash == "" {
		return "", 0, fmt.Errorf("sidecar вернул пустой хэш содержимого")
	}

	return uploadResp.ContentHash, uploadResp.Size, nil
}

// CheckReady проверяет доступность sidecar по GET /health.
func (c *Client) CheckReady(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("создание запроса health: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос health к sidecar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sidecar вернул статус %d", resp.StatusCode)
	}
	return nil
}
