package model

import "time"

// FileRecord — запись о загруженном файле в рамках действующей аренды.
// Append-only: записи не изменяются и не удаляются.
// Хранится в таблице file_records.
type FileRecord struct {
	// ID — UUID записи
	ID string
	// SpaceID — пространство, к которому привязан файл
	SpaceID int64
	// Renter — аккаунт арендатора, загрузившего файл
	Renter string
	// ContentHash — ссылка на содержимое из Upload Sidecar (SHA-256)
	ContentHash string
	// UploadedAt — время регистрации загрузки
	UploadedAt time.Time
}
