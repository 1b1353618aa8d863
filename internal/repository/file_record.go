package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bigkaa/rentstore/internal/domain/model"
)

// FileRecordRepository — доступ к таблице file_records.
// Таблица append-only: записи создаются и читаются, но не изменяются.
type FileRecordRepository interface {
	// Create сохраняет запись о загрузке.
	Create(ctx context.Context, record *model.FileRecord) error
	// ListBySpace возвращает записи пространства в порядке загрузки.
	ListBySpace(ctx context.Context, spaceID int64) ([]*model.FileRecord, error)
}

// fileRecordRepo — реализация FileRecordRepository.
type fileRecordRepo struct {
	db DBTX
}

// NewFileRecordRepository создаёт репозиторий записей о файлах.
func NewFileRecordRepository(db DBTX) FileRecordRepository {
	return &fileRecordRepo{db: db}
}

func (r *fileRecordRepo) Create(ctx context.Context, record *model.FileRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `
		INSERT INTO file_records (id, space_id, renter_account, content_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING uploaded_at`

	err := r.db.QueryRow(ctx, query,
		record.ID, record.SpaceID, record.Renter, record.ContentHash,
	).Scan(&record.UploadedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка создания записи о файле: %w", err)
	}
	return nil
}

func (r *fileRecordRepo) ListBySpace(ctx context.Context, spaceID int64) ([]*model.FileRecord, error) {
	query := `
		SELECT id, space_id, renter_account, content_hash, uploaded_at
		FROM file_records
		WHERE space_id = $1
		ORDER BY uploaded_at`

	rows, err := r.db.Query(ctx, query, spaceID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей о файлах: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		record := &model.FileRecord{}
		if err := rows.Scan(
			&record.ID, &record.SpaceID, &record.Renter,
			&record.ContentHash, &record.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи о файле: %w", err)
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
