package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/rentstore/internal/domain/model"
)

// RentalRepository — доступ к таблице rentals.
// Жизненный цикл аренды (создание, расширение, деактивация) проходит
// только через Rental Registry.
type RentalRepository interface {
	// Create сохраняет новую аренду.
	Create(ctx context.Context, rental *model.Rental) error
	// GetByID возвращает аренду по UUID.
	GetByID(ctx context.Context, id string) (*model.Rental, error)
	// Extend атомарно расширяет активную аренду: rented_space
	// увеличивается на amount, paid_amount — на paid (десятичная
	// строка), срок заменяется на rentedUntil. Возвращает обновлённую
	// аренду. ErrNotFound — аренда не существует или уже деактивирована.
	Extend(ctx context.Context, id string, amount int64, rentedUntil time.Time, paid string) (*model.Rental, error)
	// Deactivate снимает флаг is_active. Возвращает аренду и признак,
	// изменилось ли состояние (false — аренда уже была неактивна).
	Deactivate(ctx context.Context, id string) (*model.Rental, bool, error)
	// FindCurrent возвращает аренду с is_active по паре (space, renter)
	// без учёта срока. Не более одной такой записи (частичный
	// уникальный индекс).
	FindCurrent(ctx context.Context, spaceID int64, renter string) (*model.Rental, error)
	// ListActiveForAccount возвращает действующие в момент now аренды аккаунта.
	ListActiveForAccount(ctx context.Context, account string, now time.Time) ([]*model.Rental, error)
	// ListExpired возвращает аренды с is_active, срок которых истёк к now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Rental, error)
}

// rentalRepo — реализация RentalRepository.
type rentalRepo struct {
	db DBTX
}

// NewRentalRepository создаёт репозиторий аренд.
func NewRentalRepository(db DBTX) RentalRepository {
	return &rentalRepo{db: db}
}

const rentalColumns = `id, space_id, renter_account, rented_space, rented_until,
	paid_amount, is_active, created_at, updated_at`

func (r *rentalRepo) Create(ctx context.Context, rental *model.Rental) error {
	if rental.ID == "" {
		rental.ID = uuid.New().String()
	}

	query := `
		INSERT INTO rentals (id, space_id, renter_account, rented_space, rented_until, paid_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING is_active, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		rental.ID, rental.SpaceID, rental.Renter, rental.RentedSpace,
		rental.RentedUntil, rental.PaidAmount,
	).Scan(&rental.IsActive, &rental.CreatedAt, &rental.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: активная аренда для этой пары (space, renter) уже существует", ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка создания аренды: %w", err)
	}
	return nil
}

func (r *rentalRepo) GetByID(ctx context.Context, id string) (*model.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = $1`

	rental := &model.Rental{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rental.ID, &rental.SpaceID, &rental.Renter, &rental.RentedSpace,
		&rental.RentedUntil, &rental.PaidAmount, &rental.IsActive,
		&rental.CreatedAt, &rental.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения аренды: %w", err)
	}
	return rental, nil
}

func (r *rentalRepo) Extend(ctx context.Context, id string, amount int64, rentedUntil time.Time, paid string) (*model.Rental, error) {
	// Относительные инкременты в одном UPDATE: конкурентные расширения
	// одной аренды не теряют объём и оплату друг друга. Условие
	// is_active отсекает гонку с деактивацией.
	query := `
		UPDATE rentals
		SET rented_space = rented_space + $2,
		    rented_until = $3,
		    paid_amount  = (paid_amount::numeric + $4::numeric)::text,
		    updated_at   = now()
		WHERE id = $1 AND is_active
		RETURNING ` + rentalColumns

	rental := &model.Rental{}
	err := r.db.QueryRow(ctx, query, id, amount, rentedUntil, paid).Scan(
		&rental.ID, &rental.SpaceID, &rental.Renter, &rental.RentedSpace,
		&rental.RentedUntil, &rental.PaidAmount, &rental.IsActive,
		&rental.CreatedAt, &rental.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка расширения аренды: %w", err)
	}
	return rental, nil
}

func (r *rentalRepo) Deactivate(ctx context.Context, id string) (*model.Rental, bool, error) {
	query := `
		UPDATE rentals
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
		RETURNING ` + rentalColumns

	rental := &model.Rental{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rental.ID, &rental.SpaceID, &rental.Renter, &rental.RentedSpace,
		&rental.RentedUntil, &rental.PaidAmount, &rental.IsActive,
		&rental.CreatedAt, &rental.UpdatedAt,
	)
	if err == nil {
		return rental, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, fmt.Errorf("ошибка деактивации аренды: %w", err)
	}

	// Либо аренды нет, либо она уже неактивна (идемпотентный повтор).
	rental, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}
	return rental, false, nil
}

func (r *rentalRepo) FindCurrent(ctx context.Context, spaceID int64, renter string) (*model.Rental, error) {
	query := `SELECT ` + rentalColumns + `
		FROM rentals
		WHERE space_id = $1 AND renter_account = $2 AND is_active`

	rental := &model.Rental{}
	err := r.db.QueryRow(ctx, query, spaceID, renter).Scan(
		&rental.ID, &rental.SpaceID, &rental.Renter, &rental.RentedSpace,
		&rental.RentedUntil, &rental.PaidAmount, &rental.IsActive,
		&rental.CreatedAt, &rental.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска текущей аренды: %w", err)
	}
	return rental, nil
}

func (r *rentalRepo) ListActiveForAccount(ctx context.Context, account string, now time.Time) ([]*model.Rental, error) {
	// Ленивое истечение: фильтр по rented_until вычисляется на чтении,
	// фоновый процесс не обязателен.
	query := `SELECT ` + rentalColumns + `
		FROM rentals
		WHERE renter_account = $1 AND is_active AND rented_until > $2
		ORDER BY created_at DESC`

	return r.scanRentals(ctx, query, account, now)
}

func (r *rentalRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*model.Rental, error) {
	query := `SELECT ` + rentalColumns + `
		FROM rentals
		WHERE is_active AND rented_until <= $1
		ORDER BY rented_until
		LIMIT $2`

	return r.scanRentals(ctx, query, now, limit)
}

func (r *rentalRepo) scanRentals(ctx context.Context, query string, args ...any) ([]*model.Rental, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка аренд: %w", err)
	}
	defer rows.Close()

	var result []*model.Rental
	for rows.Next() {
		rental := &model.Rental{}
		if err := rows.Scan(
			&rental.ID, &rental.SpaceID, &rental.Renter, &rental.RentedSpace,
			&rental.RentedUntil, &rental.PaidAmount, &rental.IsActive,
			&rental.CreatedAt, &rental.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования аренды: %w", err)
		}
		result = append(result, rental)
	}
	return result, rows.Err()
}
