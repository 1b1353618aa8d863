// repository_test.go — интеграционные тесты репозиториев на PostgreSQL
// (testcontainers). Запуск: TEST_INTEGRATION=1 go test ./internal/repository/...
package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/rentstore/internal/config"
	"github.com/bigkaa/rentstore/internal/database"
	"github.com/bigkaa/rentstore/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool; контейнер останавливается в t.Cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("rentstore_test"),
		postgres.WithUsername("rentstore"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	// Настраиваем env для config.Load()
	t.Setenv("MP_STORE", "postgres")
	t.Setenv("MP_DB_HOST", host)
	t.Setenv("MP_DB_PORT", port.Port())
	t.Setenv("MP_DB_NAME", "rentstore_test")
	t.Setenv("MP_DB_USER", "rentstore")
	t.Setenv("MP_DB_PASSWORD", "test-password")
	t.Setenv("MP_DB_SSL_MODE", "disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

// --- Тесты StorageSpaceRepository ---

func TestStorageSpaceCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewStorageSpaceRepository(pool)

	space := &model.StorageSpace{
		Owner:          "alice",
		TotalSpace:     100,
		AvailableSpace: 100,
		PricePerGB:     5,
	}

	// Create
	if err := repo.Create(ctx, space); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if space.ID == 0 {
		t.Error("ID не присвоен")
	}
	if space.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// GetByID
	got, err := repo.GetByID(ctx, space.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Owner != "alice" || got.TotalSpace != 100 || got.PricePerGB != 5 {
		t.Errorf("GetByID() = %+v", got)
	}

	// Не найдено
	if _, err := repo.GetByID(ctx, 99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID(99999) err = %v, ожидалось ErrNotFound", err)
	}

	// ListAvailable / ListByOwner
	available, err := repo.ListAvailable(ctx)
	if err != nil {
		t.Fatalf("ListAvailable() ошибка: %v", err)
	}
	if len(available) != 1 {
		t.Errorf("ListAvailable() вернул %d записей", len(available))
	}

	mine, err := repo.ListByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("ListByOwner() ошибка: %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("ListByOwner() вернул %d записей", len(mine))
	}

	// NextID
	next, err := repo.NextID(ctx)
	if err != nil {
		t.Fatalf("NextID() ошибка: %v", err)
	}
	if next != space.ID+1 {
		t.Errorf("NextID() = %d, ожидалось %d", next, space.ID+1)
	}
}

func TestStorageSpaceReserveRelease(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewStorageSpaceRepository(pool)

	space := &model.StorageSpace{Owner: "alice", TotalSpace: 10, AvailableSpace: 10, PricePerGB: 1}
	if err := repo.Create(ctx, space); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	// Успешное резервирование
	if err := repo.Reserve(ctx, space.ID, 6); err != nil {
		t.Fatalf("Reserve() ошибка: %v", err)
	}

	// Превышение остатка
	if err := repo.Reserve(ctx, space.ID, 6); !errors.Is(err, ErrInsufficientCapacity) {
		t.Errorf("Reserve() err = %v, ожидалось ErrInsufficientCapacity", err)
	}

	// Возврат без превышения ёмкости
	clamped, err := repo.Release(ctx, space.ID, 6)
	if err != nil {
		t.Fatalf("Release() ошибка: %v", err)
	}
	if clamped {
		t.Error("Release() clamped = true для корректного возврата")
	}

	// Возврат выше total_space обрезается
	clamped, err = repo.Release(ctx, space.ID, 5)
	if err != nil {
		t.Fatalf("Release() ошибка: %v", err)
	}
	if !clamped {
		t.Error("Release() clamped = false при превышении ёмкости")
	}
	got, _ := repo.GetByID(ctx, space.ID)
	if got.AvailableSpace != got.TotalSpace {
		t.Errorf("AvailableSpace = %d, ожидалось %d", got.AvailableSpace, got.TotalSpace)
	}

	// Замороженное пространство отклоняет резервирование
	if err := repo.SetFrozen(ctx, space.ID); err != nil {
		t.Fatalf("SetFrozen() ошибка: %v", err)
	}
	if err := repo.Reserve(ctx, space.ID, 1); !errors.Is(err, ErrFrozen) {
		t.Errorf("Reserve() err = %v, ожидалось ErrFrozen", err)
	}
}

// Конкурентное резервирование на уровне SQL: ровно один победитель.
func TestStorageSpaceConcurrentReserve(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewStorageSpaceRepository(pool)

	space := &model.StorageSpace{Owner: "alice", TotalSpace: 10, AvailableSpace: 10, PricePerGB: 1}
	if err := repo.Create(ctx, space); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repo.Reserve(ctx, space.ID, 6)
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
		} else if !errors.Is(err, ErrInsufficientCapacity) {
			t.Errorf("неожиданная ошибка: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("успешных резервирований %d, ожидалось ровно 1", ok)
	}
}

// --- Тесты RentalRepository ---

func TestRentalLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	spaceRepo := NewStorageSpaceRepository(pool)
	rentalRepo := NewRentalRepository(pool)

	space := &model.StorageSpace{Owner: "alice", TotalSpace: 100, AvailableSpace: 100, PricePerGB: 1}
	if err := spaceRepo.Create(ctx, space); err != nil {
		t.Fatalf("Create(space) ошибка: %v", err)
	}

	rental := &model.Rental{
		SpaceID:     space.ID,
		Renter:      "bob",
		RentedSpace: 20,
		RentedUntil: time.Now().UTC().Add(30 * 24 * time.Hour),
		PaidAmount:  "600",
		IsActive:    true,
	}
	if err := rentalRepo.Create(ctx, rental); err != nil {
		t.Fatalf("Create(rental) ошибка: %v", err)
	}
	if rental.ID == "" {
		t.Error("ID аренды не присвоен")
	}

	// Вторая активная запись той же пары нарушает частичный
	// уникальный индекс.
	dup := &model.Rental{
		SpaceID:     space.ID,
		Renter:      "bob",
		RentedSpace: 5,
		RentedUntil: time.Now().UTC().Add(24 * time.Hour),
		PaidAmount:  "5",
		IsActive:    true,
	}
	if err := rentalRepo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Create(dup) err = %v, ожидалось ErrConflict", err)
	}

	// FindCurrent
	current, err := rentalRepo.FindCurrent(ctx, space.ID, "bob")
	if err != nil {
		t.Fatalf("FindCurrent() ошибка: %v", err)
	}
	if current.ID != rental.ID {
		t.Errorf("FindCurrent() = %s, ожидалось %s", current.ID, rental.ID)
	}

	// Extend: относительные инкременты объёма и оплаты
	newUntil := time.Now().UTC().Add(45 * 24 * time.Hour).Truncate(time.Microsecond)
	extended, err := rentalRepo.Extend(ctx, rental.ID, 5, newUntil, "100")
	if err != nil {
		t.Fatalf("Extend() ошибка: %v", err)
	}
	if extended.RentedSpace != 25 {
		t.Errorf("Extend() RentedSpace = %d, ожидалось 25", extended.RentedSpace)
	}
	if extended.PaidAmount != "700" {
		t.Errorf("Extend() PaidAmount = %q, ожидалось 700", extended.PaidAmount)
	}
	if !extended.RentedUntil.Equal(newUntil) {
		t.Errorf("Extend() RentedUntil = %v, ожидалось %v", extended.RentedUntil, newUntil)
	}

	// ListActiveForAccount
	active, err := rentalRepo.ListActiveForAccount(ctx, "bob", time.Now().UTC())
	if err != nil {
		t.Fatalf("ListActiveForAccount() ошибка: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("действующих аренд %d, ожидалась 1", len(active))
	}

	// Deactivate: первый вызов изменяет состояние, второй — нет
	_, changed, err := rentalRepo.Deactivate(ctx, rental.ID)
	if err != nil {
		t.Fatalf("Deactivate() ошибка: %v", err)
	}
	if !changed {
		t.Error("Deactivate() changed = false для активной аренды")
	}
	_, changed, err = rentalRepo.Deactivate(ctx, rental.ID)
	if err != nil {
		t.Fatalf("повторный Deactivate() ошибка: %v", err)
	}
	if changed {
		t.Error("повторный Deactivate() changed = true")
	}

	// Extend деактивированной аренды отклоняется
	if _, err := rentalRepo.Extend(ctx, rental.ID, 5, newUntil, "100"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Extend(неактивная) err = %v, ожидалось ErrNotFound", err)
	}
}

func TestRentalConcurrentExtend(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	spaceRepo := NewStorageSpaceRepository(pool)
	rentalRepo := NewRentalRepository(pool)

	space := &model.StorageSpace{Owner: "alice", TotalSpace: 100, AvailableSpace: 100, PricePerGB: 1}
	if err := spaceRepo.Create(ctx, space); err != nil {
		t.Fatalf("Create(space) ошибка: %v", err)
	}

	rental := &model.Rental{
		SpaceID:     space.ID,
		Renter:      "bob",
		RentedSpace: 20,
		RentedUntil: time.Now().UTC().Add(30 * 24 * time.Hour),
		PaidAmount:  "600",
		IsActive:    true,
	}
	if err := rentalRepo.Create(ctx, rental); err != nil {
		t.Fatalf("Create(rental) ошибка: %v", err)
	}

	// Конкурентные расширения одной аренды: ни один инкремент объёма
	// или оплаты не должен потеряться.
	const workers = 8
	until := time.Now().UTC().Add(60 * 24 * time.Hour)
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rentalRepo.Extend(ctx, rental.ID, 5, until, "50"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Extend() ошибка: %v", err)
	}

	got, err := rentalRepo.GetByID(ctx, rental.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.RentedSpace != 60 {
		t.Errorf("RentedSpace = %d, ожидалось 60", got.RentedSpace)
	}
	if got.PaidAmount != "1000" {
		t.Errorf("PaidAmount = %q, ожидалось 1000", got.PaidAmount)
	}
}

func TestRentalListExpired(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	spaceRepo := NewStorageSpaceRepository(pool)
	rentalRepo := NewRentalRepository(pool)

	space := &model.StorageSpace{Owner: "alice", TotalSpace: 100, AvailableSpace: 100, PricePerGB: 1}
	if err := spaceRepo.Create(ctx, space); err != nil {
		t.Fatalf("Create(space) ошибка: %v", err)
	}

	now := time.Now().UTC()
	expired := &model.Rental{
		SpaceID:     space.ID,
		Renter:      "bob",
		RentedSpace: 10,
		RentedUntil: now.Add(-time.Hour),
		PaidAmount:  "10",
		IsActive:    true,
	}
	live := &model.Rental{
		SpaceID:     space.ID,
		Renter:      "carol",
		RentedSpace: 10,
		RentedUntil: now.Add(time.Hour),
		PaidAmount:  "10",
		IsActive:    true,
	}
	if err := rentalRepo.Create(ctx, expired); err != nil {
		t.Fatalf("Create(expired) ошибка: %v", err)
	}
	if err := rentalRepo.Create(ctx, live); err != nil {
		t.Fatalf("Create(live) ошибка: %v", err)
	}

	due, err := rentalRepo.ListExpired(ctx, now, 100)
	if err != nil {
		t.Fatalf("ListExpired() ошибка: %v", err)
	}
	if len(due) != 1 || due[0].ID != expired.ID {
		t.Errorf("ListExpired() = %+v, ожидалась одна истёкшая аренда", due)
	}
}

// --- Тесты FileRecordRepository ---

func TestFileRecordCreateAndList(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	spaceRepo := NewStorageSpaceRepository(pool)
	fileRepo := NewFileRecordRepository(pool)

	space := &model.StorageSpace{Owner: "alice", TotalSpace: 100, AvailableSpace: 100, PricePerGB: 1}
	if err := spaceRepo.Create(ctx, space); err != nil {
		t.Fatalf("Create(space) ошибка: %v", err)
	}

	record := &model.FileRecord{
		SpaceID:     space.ID,
		Renter:      "bob",
		ContentHash: "a3f1b2",
	}
	if err := fileRepo.Create(ctx, record); err != nil {
		t.Fatalf("Create(file) ошибка: %v", err)
	}
	if record.ID == "" {
		t.Error("ID записи не присвоен")
	}

	files, err := fileRepo.ListBySpace(ctx, space.ID)
	if err != nil {
		t.Fatalf("ListBySpace() ошибка: %v", err)
	}
	if len(files) != 1 || files[0].ContentHash != "a3f1b2" {
		t.Errorf("ListBySpace() = %+v", files)
	}
}
