// ledger.go — учёт ёмкости пространств хранения.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/rentstore/internal/domain/model"
	"github.com/bigkaa/rentstore/internal/events"
	"github.com/bigkaa/rentstore/internal/repository"
)

// CapacityLedger отвечает за учёт ёмкости пространств хранения:
// выставление пространств на рынок, резервирование и возврат места.
// Инварианты 0 <= available_space <= total_space поддерживаются
// на уровне хранилища, ledger переводит ошибки хранилища в ошибки
// бизнес-уровня и регистрирует нарушения учёта.
type CapacityLedger struct {
	spaces repository.StorageSpaceRepository
	bus    *events.Bus
	logger *slog.Logger
}

// NewCapacityLedger создаёт CapacityLedger.
func NewCapacityLedger(spaces repository.StorageSpaceRepository, bus *events.Bus, logger *slog.Logger) *CapacityLedger {
	return &CapacityLedger{
		spaces: spaces,
		bus:    bus,
		logger: logger.With(slog.String("component", "capacity-ledger")),
	}
}

// ListSpace выставляет пространство владельца на рынок. Всё место
// изначально свободно: available_space = total_space. После успешной
// записи публикуется событие storage.added.
func (l *CapacityLedger) ListSpace(ctx context.Context, owner string, totalSpace, pricePerGB int64) (*model.StorageSpace, error) {
	if owner == "" {
		return nil, fmt.Errorf("%w: владелец не указан", ErrInvalidParameters)
	}
	if totalSpace <= 0 {
		return nil, fmt.Errorf("%w: ёмкость должна быть положительной", ErrInvalidParameters)
	}
	if pricePerGB < 0 {
		return nil, fmt.Errorf("%w: цена не может быть отрицательной", ErrInvalidParameters)
	}

	space := &model.StorageSpace{
		Owner:          owner,
		TotalSpace:     totalSpace,
		AvailableSpace: totalSpace,
		PricePerGB:     pricePerGB,
	}

	if err := l.spaces.Create(ctx, space); err != nil {
		return nil, fmt.Errorf("не удалось создать пространство: %w", err)
	}

	l.logger.Info("Пространство выставлено на рынок",
		slog.Int64("space_id", space.ID),
		slog.String("owner", owner),
		slog.Int64("total_space", totalSpace),
		slog.Int64("price_per_gb", pricePerGB),
	)
	spacesAddedTotal.Inc()

	l.bus.Publish(events.Event{
		Kind: events.StorageAdded,
		At:   time.Now().UTC(),
		Payload: events.StorageAddedPayload{
			SpaceID:    space.ID,
			Owner:      owner,
			TotalSpace: totalSpace,
			PricePerGB: pricePerGB,
		},
	})

	return space, nil
}

// Reserve атомарно уменьшает свободное место пространства на amount.
// Операция либо проходит целиком, либо не меняет состояние: при
// конкурентных запросах на остаток места побеждает ровно один.
func (l *CapacityLedger) Reserve(ctx context.Context, spaceID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	err := l.spaces.Reserve(ctx, spaceID, amount)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrUnknownSpace
	case errors.Is(err, repository.ErrFrozen):
		return ErrSpaceFrozen
	case errors.Is(err, repository.ErrInsufficientCapacity):
		return ErrInsufficientCapacity
	default:
		return fmt.Errorf("не удалось зарезервировать место: %w", err)
	}
}

// Release возвращает amount гигабайт в свободное место пространства.
// Если возврат превысил бы полную ёмкость, значение обрезается по
// границе total_space, пространство замораживается и нарушение учёта
// регистрируется в журнале: такое состояние указывает на двойной
// возврат или рассинхронизацию реестра аренд.
func (l *CapacityLedger) Release(ctx context.Context, spaceID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	clamped, err := l.spaces.Release(ctx, spaceID, amount)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnknownSpace
		}
		return fmt.Errorf("не удалось вернуть место: %w", err)
	}

	if clamped {
		releaseClampsTotal.Inc()
		l.logger.Error("Возврат места превысил полную ёмкость, пространство заморожено",
			slog.Int64("space_id", spaceID),
			slog.Int64("amount", amount),
		)
		if err := l.spaces.SetFrozen(ctx, spaceID); err != nil {
			l.logger.Error("Не удалось заморозить пространство",
				slog.Int64("space_id", spaceID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// Freeze замораживает пространство после нарушения учёта. Замороженное
// пространство не принимает новые резервирования до вмешательства
// оператора.
func (l *CapacityLedger) Freeze(ctx context.Context, spaceID int64) error {
	accountingViolationsTotal.Inc()
	l.logger.Error("Нарушение учёта ёмкости, пространство заморожено",
		slog.Int64("space_id", spaceID),
	)
	if err := l.spaces.SetFrozen(ctx, spaceID); err != nil {
		return fmt.Errorf("не удалось заморозить пространство: %w", err)
	}
	return nil
}

// GetSpace возвращает пространство по идентификатору.
func (l *CapacityLedger) GetSpace(ctx context.Context, spaceID int64) (*model.StorageSpace, error) {
	space, err := l.spaces.GetByID(ctx, spaceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownSpace
		}
		return nil, fmt.Errorf("не удалось получить пространство: %w", err)
	}
	return space, nil
}

// ListAvailable возвращает пространства с ненулевым свободным местом.
func (l *CapacityLedger) ListAvailable(ctx context.Context) ([]*model.StorageSpace, error) {
	spaces, err := l.spaces.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить список пространств: %w", err)
	}
	return spaces, nil
}

// ListByOwner возвращает пространства, принадлежащие владельцу.
func (l *CapacityLedger) ListByOwner(ctx context.Context, owner string) ([]*model.StorageSpace, error) {
	spaces, err := l.spaces.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить пространства владельца: %w", err)
	}
	return spaces, nil
}

// NextID возвращает идентификатор, который получит следующее
// выставленное пространство. Значение носит справочный характер:
// между чтением и созданием идентификатор может занять другой запрос.
func (l *CapacityLedger) NextID(ctx context.Context) (int64, error) {
	id, err := l.spaces.NextID(ctx)
	if err != nil {
		return 0, fmt.Errorf("не удалось получить следующий идентификатор: %w", err)
	}
	return id, nil
}
