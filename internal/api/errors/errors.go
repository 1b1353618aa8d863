// Пакет errors — конструкторы стандартных ошибок HTTP API маркетплейса.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок API.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeInsufficientPayment  = "INSUFFICIENT_PAYMENT"
	CodeOverpayment          = "OVERPAYMENT"
	CodeInsufficientCapacity = "INSUFFICIENT_CAPACITY"
	CodeSpaceFrozen          = "SPACE_FROZEN"
	CodeNoActiveRental       = "NO_ACTIVE_RENTAL"
	CodeConflict             = "CONFLICT"
	CodeFileTooLarge         = "FILE_TOO_LARGE"
	CodeSidecarUnavailable   = "SIDECAR_UNAVAILABLE"
	CodeAccountingViolation  = "ACCOUNTING_VIOLATION"
	CodeInternalError        = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// InsufficientPayment — 402 внесённая сумма меньше стоимости аренды.
func InsufficientPayment(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusPaymentRequired, CodeInsufficientPayment, message)
}

// Overpayment — 402 внесённая сумма больше стоимости аренды.
func Overpayment(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusPaymentRequired, CodeOverpayment, message)
}

// InsufficientCapacity — 409 недостаточно свободного места.
func InsufficientCapacity(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeInsufficientCapacity, message)
}

// SpaceFrozen — 409 пространство заморожено.
func SpaceFrozen(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeSpaceFrozen, message)
}

// NoActiveRental — 409 нет активной аренды.
func NoActiveRental(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeNoActiveRental, message)
}

// Conflict — 409 конкурентное изменение, запрос можно повторить.
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// FileTooLarge — 413 размер файла превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// SidecarUnavailable — 502 сервис загрузки недоступен.
func SidecarUnavailable(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadGateway, CodeSidecarUnavailable, message)
}

// AccountingViolation — 500 нарушение учёта ёмкости.
func AccountingViolation(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeAccountingViolation, message)
}

// InternalError — 500 внутренняя ошибка сервера.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
