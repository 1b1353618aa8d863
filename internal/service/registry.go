// registry.go — реестр аренд пространств хранения.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/bigkaa/rentstore/internal/domain/model"
	"github.com/bigkaa/rentstore/internal/events"
	"github.com/bigkaa/rentstore/internal/repository"
)

// RentalRegistry отвечает за жизненный цикл аренд: создание и
// продление, идемпотентное освобождение по истечении срока и
// регистрацию загрузок файлов.
//
// Резервирование места и запись аренды не объединены в одну
// транзакцию: при ошибке записи зарезервированное место возвращается
// компенсирующим вызовом Release. Если и компенсация не удалась,
// пространство замораживается и операция завершается ошибкой
// нарушения учёта.
type RentalRegistry struct {
	ledger  *CapacityLedger
	rentals repository.RentalRepository
	files   repository.FileRecordRepository
	bus     *events.Bus
	logger  *slog.Logger

	// Источник времени, подменяется в тестах.
	now func() time.Time
}

// NewRentalRegistry создаёт RentalRegistry.
func NewRentalRegistry(
	ledger *CapacityLedger,
	rentals repository.RentalRepository,
	files repository.FileRecordRepository,
	bus *events.Bus,
	logger *slog.Logger,
) *RentalRegistry {
	return &RentalRegistry{
		ledger:  ledger,
		rentals: rentals,
		files:   files,
		bus:     bus,
		logger:  logger.With(slog.String("component", "rental-registry")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateRental арендует amount гигабайт в пространстве spaceID на
// durationDays дней. Сумма paid уже проверена по котировке вызывающей
// стороной и записывается как есть.
//
// У пары (аккаунт, пространство) может быть не более одной активной
// аренды. Если активная аренда уже есть, запрос продлевает её:
// объём увеличивается на amount, срок отсчитывается заново от текущего
// момента, оплата накапливается. Запись с истёкшим сроком сначала
// освобождается, затем создаётся новая аренда.
func (s *RentalRegistry) CreateRental(ctx context.Context, spaceID int64, renter string, amount, durationDays int64, paid *big.Int) (*model.Rental, error) {
	if renter == "" {
		return nil, fmt.Errorf("%w: арендатор не указан", ErrInvalidParameters)
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if durationDays <= 0 {
		return nil, ErrInvalidDuration
	}

	now := s.now()

	// Существующая запись аренды этой пары.
	current, err := s.rentals.FindCurrent(ctx, spaceID, renter)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("не удалось проверить текущую аренду: %w", err)
	}

	if current != nil && !current.ActiveAt(now) {
		// Запись помечена активной, но срок истёк: освобождаем место
		// до создания новой аренды.
		if err := s.ExpireAndRelease(ctx, current.ID); err != nil {
			return nil, fmt.Errorf("не удалось освободить истёкшую аренду: %w", err)
		}
		current = nil
	}

	// Сначала резервируем место: проигравший конкурентный запрос
	// получает отказ здесь, не оставляя следов в реестре.
	if err := s.ledger.Reserve(ctx, spaceID, amount); err != nil {
		rentFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	rentedUntil := now.Add(time.Duration(durationDays) * 24 * time.Hour)

	var rental *model.Rental
	if current != nil {
		// Репозиторий применяет инкременты атомарно: конкурентные
		// расширения одной аренды не теряют объём и оплату друг друга.
		rental, err = s.rentals.Extend(ctx, current.ID, amount, rentedUntil, paid.String())
		if errors.Is(err, repository.ErrNotFound) {
			// Аренда деактивирована между FindCurrent и Extend.
			err = repository.ErrConflict
		}
	} else {
		rental = &model.Rental{
			SpaceID:     spaceID,
			Renter:      renter,
			RentedSpace: amount,
			RentedUntil: rentedUntil,
			PaidAmount:  paid.String(),
			IsActive:    true,
		}
		err = s.rentals.Create(ctx, rental)
	}
	if err != nil {
		// Запись не удалась: возвращаем зарезервированное место.
		if compErr := s.compensateReserve(ctx, spaceID, amount); compErr != nil {
			return nil, compErr
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: конкурентное изменение аренды этой пары, повторите запрос", ErrConflict)
		}
		return nil, fmt.Errorf("не удалось записать аренду: %w", err)
	}

	s.logger.Info("Аренда оформлена",
		slog.String("rental_id", rental.ID),
		slog.Int64("space_id", spaceID),
		slog.String("renter", renter),
		slog.Int64("amount", amount),
		slog.Int64("duration_days", durationDays),
		slog.String("paid", paid.String()),
	)
	rentalsTotal.Inc()

	s.bus.Publish(events.Event{
		Kind: events.StorageRented,
		At:   now,
		Payload: events.StorageRentedPayload{
			RentalID:    rental.ID,
			SpaceID:     spaceID,
			Renter:      renter,
			RentedSpace: amount,
			RentedUntil: rental.RentedUntil,
			PaidAmount:  paid.String(),
		},
	})

	return rental, nil
}

// compensateReserve возвращает место после неудачной записи аренды.
// Одна повторная попытка; если обе не удались, пространство
// замораживается и возвращается ошибка нарушения учёта.
func (s *RentalRegistry) compensateReserve(ctx context.Context, spaceID, amount int64) error {
	relErr := s.ledger.Release(ctx, spaceID, amount)
	if relErr == nil {
		return nil
	}
	s.logger.Warn("Компенсация резервирования не удалась, повторная попытка",
		slog.Int64("space_id", spaceID),
		slog.Int64("amount", amount),
		slog.String("error", relErr.Error()),
	)
	if relErr = s.ledger.Release(ctx, spaceID, amount); relErr == nil {
		return nil
	}

	if err := s.ledger.Freeze(ctx, spaceID); err != nil {
		s.logger.Error("Не удалось заморозить пространство после нарушения учёта",
			slog.Int64("space_id", spaceID),
			slog.String("error", err.Error()),
		)
	}
	return fmt.Errorf("%w: компенсация резервирования не удалась: %v", ErrAccountingViolation, relErr)
}

// ExpireAndRelease деактивирует аренду и возвращает арендованное место
// пространству. Операция идемпотентна: уже деактивированная аренда не
// освобождает место повторно.
func (s *RentalRegistry) ExpireAndRelease(ctx context.Context, rentalID string) error {
	rental, changed, err := s.rentals.Deactivate(ctx, rentalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoActiveRental
		}
		return fmt.Errorf("не удалось деактивировать аренду: %w", err)
	}
	if !changed {
		// Аренда уже была деактивирована, место возвращено ранее.
		return nil
	}

	if err := s.ledger.Release(ctx, rental.SpaceID, rental.RentedSpace); err != nil {
		return fmt.Errorf("не удалось вернуть место аренды %s: %w", rentalID, err)
	}

	s.logger.Info("Аренда освобождена",
		slog.String("rental_id", rentalID),
		slog.Int64("space_id", rental.SpaceID),
		slog.Int64("released", rental.RentedSpace),
	)
	rentalsExpiredTotal.Inc()

	s.bus.Publish(events.Event{
		Kind: events.StorageReleased,
		At:   s.now(),
		Payload: events.StorageReleasedPayload{
			RentalID:      rentalID,
			SpaceID:       rental.SpaceID,
			Renter:        rental.Renter,
			ReleasedSpace: rental.RentedSpace,
		},
	})

	return nil
}

// ExpireDue освобождает не более limit аренд с истёкшим сроком.
// Возвращает количество освобождённых аренд.
func (s *RentalRegistry) ExpireDue(ctx context.Context, limit int) (int, error) {
	expired, err := s.rentals.ListExpired(ctx, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("не удалось получить истёкшие аренды: %w", err)
	}

	released := 0
	for _, r := range expired {
		if err := s.ExpireAndRelease(ctx, r.ID); err != nil {
			s.logger.Error("Не удалось освободить истёкшую аренду",
				slog.String("rental_id", r.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		released++
	}
	return released, nil
}

// GetRental возвращает аренду по идентификатору.
func (s *RentalRegistry) GetRental(ctx context.Context, rentalID string) (*model.Rental, error) {
	rental, err := s.rentals.GetByID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveRental
		}
		return nil, fmt.Errorf("не удалось получить аренду: %w", err)
	}
	return rental, nil
}

// ListActiveForAccount возвращает действующие аренды аккаунта.
// Записи с истёкшим сроком исключаются по текущему времени независимо
// от флага is_active: освобождение места выполняет фоновый обход.
func (s *RentalRegistry) ListActiveForAccount(ctx context.Context, renter string) ([]*model.Rental, error) {
	rentals, err := s.rentals.ListActiveForAccount(ctx, renter, s.now())
	if err != nil {
		return nil, fmt.Errorf("не удалось получить аренды аккаунта: %w", err)
	}
	return rentals, nil
}

// RecordUpload регистрирует загруженный файл за действующей арендой
// пары (пространство, аккаунт). Запись не уменьшает арендованный
// объём: учёт ведётся в гигабайтах аренды, а не по файлам.
func (s *RentalRegistry) RecordUpload(ctx context.Context, spaceID int64, renter, contentHash string) (*model.FileRecord, error) {
	if contentHash == "" {
		return nil, fmt.Errorf("%w: хэш содержимого не указан", ErrInvalidParameters)
	}

	now := s.now()
	current, err := s.rentals.FindCurrent(ctx, spaceID, renter)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveRental
		}
		return nil, fmt.Errorf("не удалось проверить аренду: %w", err)
	}
	if !current.ActiveAt(now) {
		return nil, ErrNoActiveRental
	}

	record := &model.FileRecord{
		SpaceID:     spaceID,
		Renter:      renter,
		ContentHash: contentHash,
	}
	if err := s.files.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("не удалось записать файл: %w", err)
	}

	s.logger.Info("Загрузка файла зарегистрирована",
		slog.String("file_id", record.ID),
		slog.Int64("space_id", spaceID),
		slog.String("renter", renter),
		slog.String("content_hash", contentHash),
	)
	uploadsTotal.Inc()

	s.bus.Publish(events.Event{
		Kind: events.FileUploaded,
		At:   now,
		Payload: events.FileUploadedPayload{
			FileID:      record.ID,
			SpaceID:     spaceID,
			Renter:      renter,
			ContentHash: contentHash,
		},
	})

	return record, nil
}

// ListSpaceFiles возвращает файлы, зарегистрированные в пространстве.
func (s *RentalRegistry) ListSpaceFiles(ctx context.Context, spaceID int64) ([]*model.FileRecord, error) {
	records, err := s.files.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить файлы пространства: %w", err)
	}
	return records, nil
}

// failureReason сопоставляет ошибку резервирования с меткой метрики.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownSpace):
		return "unknown_space"
	case errors.Is(err, ErrSpaceFrozen):
		return "frozen"
	case errors.Is(err, ErrInsufficientCapacity):
		return "insufficient_capacity"
	default:
		return "internal"
	}
}
