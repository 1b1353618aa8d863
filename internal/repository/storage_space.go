package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/rentstore/internal/domain/model"
)

// StorageSpaceRepository — доступ к таблице storage_spaces.
// Единственная точка мутации available_space (Capacity Ledger).
type StorageSpaceRepository interface {
	// Create создаёт пространство; идентификатор присваивается последовательно.
	Create(ctx context.Context, space *model.StorageSpace) error
	// GetByID возвращает пространство по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.StorageSpace, error)
	// ListAvailable возвращает пространства с available_space > 0.
	ListAvailable(ctx context.Context) ([]*model.StorageSpace, error)
	// ListByOwner возвращает пространства владельца.
	ListByOwner(ctx context.Context, owner string) ([]*model.StorageSpace, error)
	// NextID возвращает идентификатор, который получит следующее пространство.
	NextID(ctx context.Context) (int64, error)
	// Reserve атомарно проверяет и уменьшает available_space.
	// Возвращает ErrNotFound, ErrFrozen или ErrInsufficientCapacity.
	Reserve(ctx context.Context, id, amount int64) error
	// Release увеличивает available_space с отсечкой по total_space.
	// clamped=true сигнализирует о попытке превысить total_space.
	Release(ctx context.Context, id, amount int64) (clamped bool, err error)
	// SetFrozen помечает пространство замороженным: дальнейшие
	// резервирования отклоняются до ручной сверки.
	SetFrozen(ctx context.Context, id int64) error
}

// storageSpaceRepo — реализация StorageSpaceRepository.
type storageSpaceRepo struct {
	db DBTX
}

// NewStorageSpaceRepository создаёт репозиторий пространств хранения.
func NewStorageSpaceRepository(db DBTX) StorageSpaceRepository {
	return &storageSpaceRepo{db: db}
}

func (r *storageSpaceRepo) Create(ctx context.Context, space *model.StorageSpace) error {
	query := `
		INSERT INTO storage_spaces (owner_account, total_space, available_space, price_per_gb)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		space.Owner, space.TotalSpace, space.AvailableSpace, space.PricePerGB,
	).Scan(&space.ID, &space.CreatedAt, &space.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания пространства: %w", err)
	}
	return nil
}

func (r *storageSpaceRepo) GetByID(ctx context.Context, id int64) (*model.StorageSpace, error) {
	query := `
		SELECT id, owner_account, total_space, available_space, price_per_gb, frozen,
			created_at, updated_at
		FROM storage_spaces
		WHERE id = $1`

	space := &model.StorageSpace{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&space.ID, &space.Owner, &space.TotalSpace, &space.AvailableSpace,
		&space.PricePerGB, &space.Frozen, &space.CreatedAt, &space.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пространства: %w", err)
	}
	return space, nil
}

func (r *storageSpaceRepo) ListAvailable(ctx context.Context) ([]*model.StorageSpace, error) {
	query := `
		SELECT id, owner_account, total_space, available_space, price_per_gb, frozen,
			created_at, updated_at
		FROM storage_spaces
		WHERE available_space > 0
		ORDER BY id`

	return r.scanSpaces(ctx, query)
}

func (r *storageSpaceRepo) ListByOwner(ctx context.Context, owner string) ([]*model.StorageSpace, error) {
	query := `
		SELECT id, owner_account, total_space, available_space, price_per_gb, frozen,
			created_at, updated_at
		FROM storage_spaces
		WHERE owner_account = $1
		ORDER BY id`

	return r.scanSpaces(ctx, query, owner)
}

func (r *storageSpaceRepo) scanSpaces(ctx context.Context, query string, args ...any) ([]*model.StorageSpace, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пространств: %w", err)
	}
	defer rows.Close()

	var result []*model.StorageSpace
	for rows.Next() {
		space := &model.StorageSpace{}
		if err := rows.Scan(
			&space.ID, &space.Owner, &space.TotalSpace, &space.AvailableSpace,
			&space.PricePerGB, &space.Frozen, &space.CreatedAt, &space.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пространства: %w", err)
		}
		result = append(result, space)
	}
	return result, rows.Err()
}

func (r *storageSpaceRepo) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM storage_spaces`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("ошибка вычисления следующего идентификатора: %w", err)
	}
	return next, nil
}

func (r *storageSpaceRepo) Reserve(ctx context.Context, id, amount int64) error {
	// Проверка и декремент — один UPDATE: строка блокируется СУБД,
	// два конкурентных резервирования не могут оба пройти проверку.
	query := `
		UPDATE storage_spaces
		SET available_space = available_space - $2, updated_at = now()
		WHERE id = $1 AND NOT frozen AND available_space >= $2`

	tag, err := r.db.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("ошибка резервирования ёмкости: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Неуспех: различаем отсутствие пространства, заморозку и нехватку ёмкости.
	space, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if space.Frozen {
		return ErrFrozen
	}
	return ErrInsufficientCapacity
}

func (r *storageSpaceRepo) Release(ctx context.Context, id, amount int64) (bool, error) {
	// Отсечка по total_space с детекцией превышения: prev_available
	// берётся из подзапроса с блокировкой той же строки.
	query := `
		UPDATE storage_spaces AS s
		SET available_space = LEAST(s.available_space + $2, s.total_space), updated_at = now()
		FROM (
			SELECT available_space AS prev_available
			FROM storage_spaces
			WHERE id = $1
			FOR UPDATE
		) AS p
		WHERE s.id = $1
		RETURNING p.prev_available + $2 > s.total_space`

	var clamped bool
	err := r.db.QueryRow(ctx, query, id, amount).Scan(&clamped)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("ошибка освобождения ёмкости: %w", err)
	}
	return clamped, nil
}

func (r *storageSpaceRepo) SetFrozen(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE storage_spaces SET frozen = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка заморозки пространства: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
