package model

import "time"

// Rental — аренда части пространства хранения на фиксированный срок.
// Хранится в таблице rentals.
type Rental struct {
	// ID — UUID аренды
	ID string
	// SpaceID — идентификатор арендуемого пространства
	SpaceID int64
	// Renter — аккаунт арендатора
	Renter string
	// RentedSpace — арендованный объём в ГБ (удержан эксклюзивно)
	RentedSpace int64
	// RentedUntil — момент окончания срока аренды
	RentedUntil time.Time
	// PaidAmount — суммарно уплаченная сумма в минимальных платёжных
	// единицах. Хранится десятичной строкой: произведение
	// цена × объём × срок не помещается в BIGINT.
	PaidAmount string
	// IsActive — аренда не освобождена явно. Фактическая активность
	// определяется лениво: IsActive вместе с RentedUntil (см. ActiveAt).
	IsActive bool
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// ActiveAt сообщает, действует ли аренда в момент t.
// Ленивое истечение: флаг IsActive может ещё не быть снят,
// но после RentedUntil аренда не считается действующей.
func (r *Rental) ActiveAt(t time.Time) bool {
	return r.IsActive && t.Before(r.RentedUntil)
}
