// files.go — HTTP handlers загрузки и списка файлов пространства.
package handlers

import (
	"fmt"
	"net/http"

	apierrors "github.com/bigkaa/rentstore/internal/api/errors"
	"github.com/bigkaa/rentstore/internal/api/middleware"
)

// UploadFile обрабатывает POST /api/v1/spaces/{space_id}/files.
// Multipart form: file (обязательно). Содержимое передаётся в
// Upload Sidecar, в реестре сохраняется только хэш.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	renter := middleware.Account(r)

	spaceID, ok := h.spaceIDParam(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	record, err := h.mp.Upload(r.Context(), spaceID, renter, header.Filename, file)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFileResponse(record))
}

// ListSpaceFiles обрабатывает GET /api/v1/spaces/{space_id}/files.
func (h *APIHandler) ListSpaceFiles(w http.ResponseWriter, r *http.Request) {
	spaceID, ok := h.spaceIDParam(w, r)
	if !ok {
		return
	}

	files, err := h.mp.ListSpaceFiles(r.Context(), spaceID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files": toFileResponses(files),
		"total": len(files),
	})
}
