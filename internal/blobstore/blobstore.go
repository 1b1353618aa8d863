// Пакет blobstore — контент-адресуемое хранение загруженных файлов
// на диске. Имя файла — SHA-256 хэш содержимого: повторная загрузка
// того же содержимого перезаписывает существующий блоб, осиротевшие
// блобы не накапливаются.
package blobstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Store — контент-адресуемое хранилище блобов.
type Store struct {
	// dataDir — корневая директория хранения (SC_DATA_DIR)
	dataDir string
}

// SaveResult — результат сохранения блоба.
type SaveResult struct {
	// ContentHash — SHA-256 хэш содержимого в hex
	ContentHash string
	// Size — размер записанных данных в байтах
	Size int64
	// Path — абсолютный путь блоба на диске
	Path string
}

// New создаёт Store. Директория данных создаётся при необходимости.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

// Save записывает данные из reader с подсчётом SHA-256 на лету.
// Хэш известен только после полной записи, поэтому данные пишутся во
// временный файл со случайным именем, затем атомарно переименовываются
// в {hash[:2]}/{hash}.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *Store) Save(reader io.Reader) (*SaveResult, error) {
	tmpPath := filepath.Join(s.dataDir, "upload-"+uuid.New().String()+".tmp")

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	tee := io.TeeReader(reader, hasher)

	size, err := io.Copy(f, tee)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	fullPath := filepath.Join(s.dataDir, hash[:2], hash)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка создания каталога блоба: %w", err)
	}
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		ContentHash: hash,
		Size:        size,
		Path:        fullPath,
	}, nil
}

// Open открывает блоб по хэшу содержимого для чтения.
// Вызывающий код обязан закрыть файл.
func (s *Store) Open(contentHash string) (*os.File, error) {
	if len(contentHash) < 2 {
		return nil, fmt.Errorf("некорректный хэш содержимого: %q", contentHash)
	}

	f, err := os.Open(filepath.Join(s.dataDir, contentHash[:2], contentHash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("блоб не найден: %s", contentHash)
		}
		return nil, fmt.Errorf("ошибка открытия блоба %s: %w", contentHash, err)
	}
	return f, nil
}
