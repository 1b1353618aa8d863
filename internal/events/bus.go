// Пакет events — синхронная шина уведомлений об изменениях маркетплейса.
// Событие публикуется ровно один раз после фиксации успешной записи.
// Каждый подписчик получает события в порядке фиксации; порядок доставки
// между разными подписчиками не специфицирован.
package events

import (
	"sync"
	"time"
)

// Kind — вид события.
type Kind string

const (
	// StorageAdded — добавлено новое пространство хранения.
	StorageAdded Kind = "storage.added"
	// StorageRented — оформлена или расширена аренда.
	StorageRented Kind = "storage.rented"
	// StorageReleased — аренда освобождена (явно или по истечении срока).
	StorageReleased Kind = "storage.released"
	// FileUploaded — зарегистрирована загрузка файла.
	FileUploaded Kind = "file.uploaded"
)

// Event — уведомление об изменении.
type Event struct {
	// Kind — вид события
	Kind Kind
	// At — момент фиксации записи
	At time.Time
	// Payload — типизированная нагрузка (StorageAddedPayload и др.)
	Payload any
}

// StorageAddedPayload — нагрузка события StorageAdded.
type StorageAddedPayload struct {
	SpaceID    int64  `json:"space_id"`
	Owner      string `json:"owner"`
	TotalSpace int64  `json:"total_space"`
	PricePerGB int64  `json:"price_per_gb"`
}

// StorageRentedPayload — нагрузка события StorageRented.
type StorageRentedPayload struct {
	SpaceID     int64     `json:"space_id"`
	RentalID    string    `json:"rental_id"`
	Renter      string    `json:"renter"`
	RentedSpace int64     `json:"rented_space"`
	RentedUntil time.Time `json:"rented_until"`
	PaidAmount  string    `json:"paid_amount"`
}

// StorageReleasedPayload — нагрузка события StorageReleased.
type StorageReleasedPayload struct {
	SpaceID       int64  `json:"space_id"`
	RentalID      string `json:"rental_id"`
	Renter        string `json:"renter"`
	ReleasedSpace int64  `json:"released_space"`
}

// FileUploadedPayload — нагрузка события FileUploaded.
type FileUploadedPayload struct {
	FileID      string `json:"file_id"`
	SpaceID     int64  `json:"space_id"`
	Renter      string `json:"renter"`
	ContentHash string `json:"content_hash"`
}

// Handler — обработчик события. Вызывается синхронно из публикующей
// горутины: долгие операции обработчик должен выносить в фон сам.
type Handler func(Event)

// subscription — одна подписка на шине.
type subscription struct {
	id      uint64
	kind    Kind
	handler Handler
}

// Bus — шина публикации/подписки.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
}

// NewBus создаёт пустую шину событий.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe регистрирует обработчик для события kind.
// Возвращает функцию отписки; повторный вызов отписки — no-op.
func (b *Bus) Subscribe(kind Kind, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: kind, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll регистрирует обработчик для всех видов событий.
func (b *Bus) SubscribeAll(handler Handler) func() {
	return b.Subscribe(Kind(""), handler)
}

// Publish синхронно доставляет событие всем подходящим подписчикам
// в порядке регистрации.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.kind == "" || s.kind == e.Kind {
			s.handler(e)
		}
	}
}
