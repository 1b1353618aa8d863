// rentals.go — HTTP handlers операций аренды.
package handlers

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/bigkaa/rentstore/internal/api/errors"
	"github.com/bigkaa/rentstore/internal/api/middleware"
)

// rentRequest — тело запроса POST /api/v1/spaces/{space_id}/rentals.
type rentRequest struct {
	// Amount — арендуемый объём в гигабайтах
	Amount int64 `json:"amount"`
	// DurationDays — срок аренды в днях
	DurationDays int64 `json:"duration_days"`
	// Payment — внесённая сумма, десятичная строка
	Payment string `json:"payment"`
}

// Rent обрабатывает POST /api/v1/spaces/{space_id}/rentals.
// Оплата должна точно совпадать со стоимостью по текущей цене.
func (h *APIHandler) Rent(w http.ResponseWriter, r *http.Request) {
	renter := middleware.Account(r)

	spaceID, ok := h.spaceIDParam(w, r)
	if !ok {
		return
	}

	var req rentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	payment, ok := new(big.Int).SetString(req.Payment, 10)
	if !ok {
		apierrors.ValidationError(w, "Поле payment должно быть десятичной строкой")
		return
	}

	rental, err := h.mp.Rent(r.Context(), spaceID, renter, req.Amount, req.DurationDays, payment)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRentalResponse(rental))
}

// QuoteRent обрабатывает GET /api/v1/spaces/{space_id}/quote.
// Параметры запроса: amount, duration_days.
func (h *APIHandler) QuoteRent(w http.ResponseWriter, r *http.Request) {
	spaceID, ok := h.spaceIDParam(w, r)
	if !ok {
		return
	}

	amount, err1 := parseQueryInt(r, "amount")
	duration, err2 := parseQueryInt(r, "duration_days")
	if err1 != nil || err2 != nil {
		apierrors.ValidationError(w, "Параметры amount и duration_days обязательны и должны быть целыми числами")
		return
	}

	quoted, err := h.mp.QuoteRent(r.Context(), spaceID, amount, duration)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"price": quoted.String()})
}

// ListMyRentals обрабатывает GET /api/v1/rentals.
// Возвращает действующие аренды аутентифицированного аккаунта.
func (h *APIHandler) ListMyRentals(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.mp.ListMyRentals(r.Context(), middleware.Account(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rentals": toRentalResponses(rentals),
		"total":   len(rentals),
	})
}

// ReleaseRental обрабатывает POST /api/v1/rentals/{rental_id}/release.
// Досрочное освобождение собственной аренды.
func (h *APIHandler) ReleaseRental(w http.ResponseWriter, r *http.Request) {
	renter := middleware.Account(r)

	rentalID := chi.URLParam(r, "rental_id")
	if _, err := uuid.Parse(rentalID); err != nil {
		apierrors.ValidationError(w, "Некорректный идентификатор аренды: "+rentalID)
		return
	}

	if err := h.mp.Release(r.Context(), rentalID, renter); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}
