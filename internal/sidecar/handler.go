// handler.go — HTTP handlers Upload Sidecar.
package sidecar

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/rentstore/internal/api/errors"
	"github.com/bigkaa/rentstore/internal/blobstore"
)

// Handler — обработчик endpoints Upload Sidecar.
type Handler struct {
	store          *blobstore.Store
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler создаёт обработчик Upload Sidecar.
func NewHandler(store *blobstore.Store, maxUploadBytes int64, logger *slog.Logger) *Handler {
	return &Handler{
		store:          store,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "sidecar-handler")),
	}
}

// Upload обрабатывает POST /upload.
// Multipart form: file (обязательно). Ответ: {"content_hash": "...", "size": N}.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// Жёсткий лимит на тело запроса целиком.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Размер файла превышает лимит %d байт", h.maxUploadBytes))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	result, err := h.store.Save(file)
	if err != nil {
		h.logger.Error("Ошибка сохранения блоба",
			slog.String("filename", header.Filename),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Не удалось сохранить файл")
		return
	}

	h.logger.Info("Файл сохранён",
		slog.String("filename", header.Filename),
		slog.String("content_hash", result.ContentHash),
		slog.Int64("size", result.Size),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(UploadResponse{
		ContentHash: result.ContentHash,
		Size:        result.Size,
	})
}

// Health обрабатывает GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
