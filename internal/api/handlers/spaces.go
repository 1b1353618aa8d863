// spaces.go — HTTP handlers операций с пространствами хранения.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/rentstore/internal/api/errors"
	"github.com/bigkaa/rentstore/internal/api/middleware"
)

// addSpaceRequest — тело запроса POST /api/v1/spaces.
type addSpaceRequest struct {
	// TotalSpace — ёмкость пространства в гигабайтах
	TotalSpace int64 `json:"total_space"`
	// PricePerGB — цена за гигабайт в сутки
	PricePerGB int64 `json:"price_per_gb"`
}

// AddSpace обрабатывает POST /api/v1/spaces.
// Выставляет пространство аутентифицированного аккаунта на рынок.
func (h *APIHandler) AddSpace(w http.ResponseWriter, r *http.Request) {
	owner := middleware.Account(r)

	var req addSpaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	space, err := h.mp.AddSpace(r.Context(), owner, req.TotalSpace, req.PricePerGB)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSpaceResponse(space))
}

// ListSpaces обрабатывает GET /api/v1/spaces.
// Возвращает пространства со свободным местом.
func (h *APIHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.mp.ListAvailableSpaces(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"spaces": toSpaceResponses(spaces),
		"total":  len(spaces),
	})
}

// GetSpace обрабатывает GET /api/v1/spaces/{space_id}.
func (h *APIHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	spaceID, ok := h.spaceIDParam(w, r)
	if !ok {
		return
	}

	space, err := h.mp.GetSpace(r.Context(), spaceID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSpaceResponse(space))
}

// ListMySpaces обрабатывает GET /api/v1/spaces/my.
// Возвращает пространства аутентифицированного аккаунта.
func (h *APIHandler) ListMySpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.mp.ListMySpaces(r.Context(), middleware.Account(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"spaces": toSpaceResponses(spaces),
		"total":  len(spaces),
	})
}

// NextSpaceID обрабатывает GET /api/v1/spaces/next-id.
// Справочный идентификатор следующего пространства.
func (h *APIHandler) NextSpaceID(w http.ResponseWriter, r *http.Request) {
	id, err := h.mp.NextSpaceID(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"next_id": id})
}

// spaceIDParam извлекает и валидирует {space_id} из пути.
func (h *APIHandler) spaceIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "space_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		apierrors.ValidationError(w, "Некорректный идентификатор пространства: "+raw)
		return 0, false
	}
	return id, true
}
