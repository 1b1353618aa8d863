// Пакет sidecar — Upload Sidecar: приём файлов по HTTP и клиент
// маркетплейса к нему. Sidecar хранит содержимое файлов и возвращает
// хэш; учёт загрузок ведёт маркетплейс.
package sidecar

// UploadResponse — ответ sidecar на успешную загрузку.
type UploadResponse struct {
	// ContentHash — SHA-256 хэш содержимого в hex
	ContentHash string `json:"content_hash"`
	// Size — размер файла в байтах
	Size int64 `json:"size"`
}
