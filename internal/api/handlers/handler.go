// Пакет handlers — HTTP-обработчики API маркетплейса.
// handler.go — конструктор APIHandler, сериализация ответов и
// сопоставление ошибок бизнес-уровня с HTTP-кодами.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/bigkaa/rentstore/internal/api/errors"
	"github.com/bigkaa/rentstore/internal/domain/model"
	"github.com/bigkaa/rentstore/internal/domain/pricing"
	"github.com/bigkaa/rentstore/internal/events"
	"github.com/bigkaa/rentstore/internal/service"
)

// ReadinessChecker — проверка готовности зависимостей (БД, sidecar).
type ReadinessChecker interface {
	CheckReady(ctx context.Context) error
}

// APIHandler — обработчик endpoints API маркетплейса.
type APIHandler struct {
	mp     *service.Marketplace
	bus    *events.Bus
	ready  []ReadinessChecker
	logger *slog.Logger
}

// NewAPIHandler создаёт обработчик API.
// ready — проверки готовности зависимостей для /health/ready.
func NewAPIHandler(mp *service.Marketplace, bus *events.Bus, ready []ReadinessChecker, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		mp:     mp,
		bus:    bus,
		ready:  ready,
		logger: logger.With(slog.String("component", "api-handler")),
	}
}

// writeJSON сериализует v в JSON и записывает ответ со статусом status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// parseQueryInt извлекает обязательный целочисленный параметр запроса.
func parseQueryInt(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
}

// writeServiceError сопоставляет ошибку бизнес-уровня с HTTP-ответом.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownSpace):
		apierrors.NotFound(w, "Пространство не найдено")
	case errors.Is(err, service.ErrInvalidParameters),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidDuration):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, pricing.ErrInsufficientPayment):
		apierrors.InsufficientPayment(w, "Внесённая сумма меньше стоимости аренды")
	case errors.Is(err, pricing.ErrOverpayment):
		apierrors.Overpayment(w, "Внесённая сумма больше стоимости аренды")
	case errors.Is(err, service.ErrInsufficientCapacity):
		apierrors.InsufficientCapacity(w, "Недостаточно свободного места")
	case errors.Is(err, service.ErrSpaceFrozen):
		apierrors.SpaceFrozen(w, "Пространство заморожено до сверки учёта")
	case errors.Is(err, service.ErrNoActiveRental):
		apierrors.NoActiveRental(w, "Нет активной аренды в этом пространстве")
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, "Конкурентное изменение аренды, повторите запрос")
	case errors.Is(err, service.ErrSidecarUnavailable):
		apierrors.SidecarUnavailable(w, "Сервис загрузки недоступен")
	case errors.Is(err, service.ErrAccountingViolation):
		apierrors.AccountingViolation(w, "Нарушение учёта ёмкости, пространство заморожено")
	default:
		h.logger.Error("Внутренняя ошибка API",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// --- DTO ответов ---

// spaceResponse — представление пространства в API.
type spaceResponse struct {
	ID             int64     `json:"id"`
	Owner          string    `json:"owner"`
	TotalSpace     int64     `json:"total_space"`
	AvailableSpace int64     `json:"available_space"`
	PricePerGB     int64     `json:"price_per_gb"`
	Frozen         bool      `json:"frozen,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toSpaceResponse(s *model.StorageSpace) spaceResponse {
	return spaceResponse{
		ID:             s.ID,
		Owner:          s.Owner,
		TotalSpace:     s.TotalSpace,
		AvailableSpace: s.AvailableSpace,
		PricePerGB:     s.PricePerGB,
		Frozen:         s.Frozen,
		CreatedAt:      s.CreatedAt,
	}
}

func toSpaceResponses(spaces []*model.StorageSpace) []spaceResponse {
	out := make([]spaceResponse, 0, len(spaces))
	for _, s := range spaces {
		out = append(out, toSpaceResponse(s))
	}
	return out
}

// rentalResponse — представление аренды в API.
type rentalResponse struct {
	ID          string    `json:"id"`
	SpaceID     int64     `json:"space_id"`
	Renter      string    `json:"renter"`
	RentedSpace int64     `json:"rented_space"`
	RentedUntil time.Time `json:"rented_until"`
	PaidAmount  string    `json:"paid_amount"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toRentalResponse(r *model.Rental) rentalResponse {
	return rentalResponse{
		ID:          r.ID,
		SpaceID:     r.SpaceID,
		Renter:      r.Renter,
		RentedSpace: r.RentedSpace,
		RentedUntil: r.RentedUntil,
		PaidAmount:  r.PaidAmount,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
}

func toRentalResponses(rentals []*model.Rental) []rentalResponse {
	out := make([]rentalResponse, 0, len(rentals))
	for _, r := range rentals {
		out = append(out, toRentalResponse(r))
	}
	return out
}

// fileResponse — представление записи о файле в API.
type fileResponse struct {
	ID          string    `json:"id"`
	SpaceID     int64     `json:"space_id"`
	Renter      string    `json:"renter"`
	ContentHash string    `json:"content_hash"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func toFileResponse(f *model.FileRecord) fileResponse {
	return fileResponse{
		ID:          f.ID,
		SpaceID:     f.SpaceID,
		Renter:      f.Renter,
		ContentHash: f.ContentHash,
		UploadedAt:  f.UploadedAt,
	}
}

func toFileResponses(files []*model.FileRecord) []fileResponse {
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return out
}
