// marketplace.go — фасад маркетплейса пространств хранения.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/rentstore/internal/domain/model"
	"github.com/bigkaa/rentstore/internal/domain/pricing"
	"github.com/bigkaa/rentstore/internal/events"
)

// Ключ кэша списка доступных пространств.
const availableSpacesKey = "available"

// Uploader загружает содержимое файла во внешнее хранилище и
// возвращает хэш содержимого и размер в байтах.
type Uploader interface {
	Upload(ctx context.Context, filename string, data io.Reader) (contentHash string, size int64, err error)
}

// Marketplace — фасад операций маркетплейса. Связывает котировку
// стоимости, проверку оплаты, учёт ёмкости и реестр аренд в сценарии
// верхнего уровня; обработчики API работают только с фасадом.
type Marketplace struct {
	ledger   *CapacityLedger
	registry *RentalRegistry
	uploader Uploader
	bus      *events.Bus
	logger   *slog.Logger

	// Кэш списка доступных пространств. Инвалидируется событиями
	// шины; TTL страхует от пропущенной инвалидации.
	availableCache *expirable.LRU[string, []*model.StorageSpace]
}

// NewMarketplace создаёт фасад маркетплейса и подписывает инвалидацию
// кэша на события изменения пространств.
func NewMarketplace(
	ledger *CapacityLedger,
	registry *RentalRegistry,
	uploader Uploader,
	bus *events.Bus,
	cacheSize int,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Marketplace {
	m := &Marketplace{
		ledger:         ledger,
		registry:       registry,
		uploader:       uploader,
		bus:            bus,
		logger:         logger.With(slog.String("component", "marketplace")),
		availableCache: expirable.NewLRU[string, []*model.StorageSpace](cacheSize, nil, cacheTTL),
	}

	invalidate := func(events.Event) {
		m.availableCache.Remove(availableSpacesKey)
	}
	bus.Subscribe(events.StorageAdded, invalidate)
	bus.Subscribe(events.StorageRented, invalidate)
	bus.Subscribe(events.StorageReleased, invalidate)

	return m
}

// AddSpace выставляет пространство владельца на рынок.
func (m *Marketplace) AddSpace(ctx context.Context, owner string, totalSpace, pricePerGB int64) (*model.StorageSpace, error) {
	return m.ledger.ListSpace(ctx, owner, totalSpace, pricePerGB)
}

// QuoteRent возвращает стоимость аренды amount гигабайт в пространстве
// spaceID на durationDays дней по текущей цене пространства.
func (m *Marketplace) QuoteRent(ctx context.Context, spaceID, amount, durationDays int64) (*big.Int, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if durationDays <= 0 {
		return nil, ErrInvalidDuration
	}

	space, err := m.ledger.GetSpace(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	return pricing.Quote(space.PricePerGB, amount, durationDays), nil
}

// Rent арендует место в пространстве. Порядок проверок фиксирован:
// сначала котировка по текущей цене и точное совпадение оплаты,
// затем резервирование места и запись аренды. Оплата, не равная
// котировке, отклоняется до каких-либо изменений состояния.
func (m *Marketplace) Rent(ctx context.Context, spaceID int64, renter string, amount, durationDays int64, payment *big.Int) (*model.Rental, error) {
	if renter == "" {
		return nil, fmt.Errorf("%w: арендатор не указан", ErrInvalidParameters)
	}
	if payment == nil || payment.Sign() < 0 {
		return nil, fmt.Errorf("%w: оплата не указана", ErrInvalidParameters)
	}

	quoted, err := m.QuoteRent(ctx, spaceID, amount, durationDays)
	if err != nil {
		return nil, err
	}

	if err := pricing.ValidatePayment(quoted, payment); err != nil {
		rentFailuresTotal.WithLabelValues(paymentFailureReason(err)).Inc()
		m.logger.Info("Оплата аренды отклонена",
			slog.Int64("space_id", spaceID),
			slog.String("renter", renter),
			slog.String("quoted", quoted.String()),
			slog.String("payment", payment.String()),
		)
		return nil, err
	}

	return m.registry.CreateRental(ctx, spaceID, renter, amount, durationDays, payment)
}

// Release досрочно освобождает аренду по запросу арендатора.
func (m *Marketplace) Release(ctx context.Context, rentalID, renter string) error {
	rental, err := m.registry.GetRental(ctx, rentalID)
	if err != nil {
		return err
	}
	if rental.Renter != renter {
		// Чужая аренда неотличима от отсутствующей.
		return ErrNoActiveRental
	}
	if !rental.IsActive {
		return ErrNoActiveRental
	}
	return m.registry.ExpireAndRelease(ctx, rentalID)
}

// Upload загружает файл через Upload Sidecar и регистрирует его за
// действующей арендой. Содержимое файла маркетплейс не хранит: в
// реестр попадает только хэш, возвращённый sidecar. Если регистрация
// после успешной загрузки не удалась, блоб остаётся в sidecar без
// записи; он будет перезаписан повторной загрузкой того же содержимого.
func (m *Marketplace) Upload(ctx context.Context, spaceID int64, renter, filename string, data io.Reader) (*model.FileRecord, error) {
	if renter == "" {
		return nil, fmt.Errorf("%w: арендатор не указан", ErrInvalidParameters)
	}
	if filename == "" {
		return nil, fmt.Errorf("%w: имя файла не указано", ErrInvalidParameters)
	}

	contentHash, size, err := m.uploader.Upload(ctx, filename, data)
	if err != nil {
		m.logger.Error("Загрузка в sidecar не удалась",
			slog.Int64("space_id", spaceID),
			slog.String("renter", renter),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrSidecarUnavailable, err)
	}

	m.logger.Debug("Файл загружен в sidecar",
		slog.String("content_hash", contentHash),
		slog.Int64("size", size),
	)

	return m.registry.RecordUpload(ctx, spaceID, renter, contentHash)
}

// ListAvailableSpaces возвращает пространства со свободным местом.
// Результат кэшируется; кэш инвалидируется событиями шины.
func (m *Marketplace) ListAvailableSpaces(ctx context.Context) ([]*model.StorageSpace, error) {
	if cached, ok := m.availableCache.Get(availableSpacesKey); ok {
		return cached, nil
	}

	spaces, err := m.ledger.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	m.availableCache.Add(availableSpacesKey, spaces)
	return spaces, nil
}

// GetSpace возвращает пространство по идентификатору.
func (m *Marketplace) GetSpace(ctx context.Context, spaceID int64) (*model.StorageSpace, error) {
	return m.ledger.GetSpace(ctx, spaceID)
}

// ListMySpaces возвращает пространства, принадлежащие аккаунту.
func (m *Marketplace) ListMySpaces(ctx context.Context, owner string) ([]*model.StorageSpace, error) {
	return m.ledger.ListByOwner(ctx, owner)
}

// ListMyRentals возвращает действующие аренды аккаунта.
func (m *Marketplace) ListMyRentals(ctx context.Context, renter string) ([]*model.Rental, error) {
	return m.registry.ListActiveForAccount(ctx, renter)
}

// ListSpaceFiles возвращает файлы, зарегистрированные в пространстве.
func (m *Marketplace) ListSpaceFiles(ctx context.Context, spaceID int64) ([]*model.FileRecord, error) {
	if _, err := m.ledger.GetSpace(ctx, spaceID); err != nil {
		return nil, err
	}
	return m.registry.ListSpaceFiles(ctx, spaceID)
}

// NextSpaceID возвращает идентификатор следующего пространства.
func (m *Marketplace) NextSpaceID(ctx context.Context) (int64, error) {
	return m.ledger.NextID(ctx)
}

// paymentFailureReason сопоставляет ошибку проверки оплаты с меткой метрики.
func paymentFailureReason(err error) string {
	switch {
	case errors.Is(err, pricing.ErrInsufficientPayment):
		return "insufficient_payment"
	case errors.Is(err, pricing.ErrOverpayment):
		return "overpayment"
	default:
		return "payment"
	}
}
