package model

import "time"

// StorageSpace — выставленное на аренду пространство хранения.
// Хранится в таблице storage_spaces.
type StorageSpace struct {
	// ID — последовательный положительный идентификатор, неизменяемый
	ID int64
	// Owner — аккаунт владельца пространства
	Owner string
	// TotalSpace — общий объём в ГБ, неизменяемый
	TotalSpace int64
	// AvailableSpace — свободный объём в ГБ, в диапазоне [0, TotalSpace].
	// Меняется только через Capacity Ledger (reserve/release).
	AvailableSpace int64
	// PricePerGB — цена за ГБ в сутки в минимальных платёжных единицах
	PricePerGB int64
	// Frozen — пространство заморожено после нарушения учётного инварианта.
	// Замороженное пространство не принимает новые резервирования.
	Frozen bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// IsAvailable — производный признак: пространство доступно для аренды.
func (s *StorageSpace) IsAvailable() bool {
	return s.AvailableSpace > 0
}
