// errors.go — ошибки бизнес-уровня Marketplace Module.
package service

import "errors"

// Ошибки бизнес-уровня. Обработчики API сопоставляют их с HTTP-кодами.
var (
	// ErrUnknownSpace — пространство с указанным идентификатором не существует.
	ErrUnknownSpace = errors.New("пространство не найдено")

	// ErrInvalidParameters — некорректные параметры операции.
	ErrInvalidParameters = errors.New("некорректные параметры")

	// ErrInvalidAmount — объём должен быть положительным.
	ErrInvalidAmount = errors.New("объём должен быть положительным числом гигабайт")

	// ErrInvalidDuration — срок аренды должен быть положительным.
	ErrInvalidDuration = errors.New("срок аренды должен быть положительным числом дней")

	// ErrInsufficientCapacity — недостаточно свободного места в пространстве.
	ErrInsufficientCapacity = errors.New("недостаточно свободного места")

	// ErrSpaceFrozen — пространство заморожено после нарушения учёта.
	ErrSpaceFrozen = errors.New("пространство заморожено")

	// ErrNoActiveRental — у аккаунта нет активной аренды в этом пространстве.
	ErrNoActiveRental = errors.New("нет активной аренды")

	// ErrSidecarUnavailable — Upload Sidecar недоступен или вернул ошибку.
	ErrSidecarUnavailable = errors.New("сервис загрузки недоступен")

	// ErrAccountingViolation — компенсация резервирования не удалась,
	// учёт ёмкости пространства нарушен.
	ErrAccountingViolation = errors.New("нарушение учёта ёмкости")

	// ErrConflict — конфликт конкурентного изменения.
	ErrConflict = errors.New("конфликт изменения")
)
