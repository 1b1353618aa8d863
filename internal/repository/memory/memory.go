// Пакет memory — in-memory реализация репозиториев маркетплейса.
// Используется в dev-режиме (MP_STORE=memory) и в unit-тестах сервисного
// слоя вместо PostgreSQL. Семантика идентична SQL-реализации: резервирование
// атомарно относительно других операций на том же пространстве; независимые
// пространства не конкурируют за общий лок.
package memory

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/rentstore/internal/domain/model"
	"github.com/bigkaa/rentstore/internal/repository"
)

// spaceEntry — пространство с собственным локом.
// Отдельный мьютекс на пространство: reserve/release линеаризуются
// по spaceID, без глобального лока на все пространства.
type spaceEntry struct {
	mu    sync.Mutex
	space model.StorageSpace
}

// Store — in-memory хранилище всех таблиц маркетплейса.
type Store struct {
	mu          sync.RWMutex
	spaces      map[int64]*spaceEntry
	rentals     map[string]model.Rental
	files       []model.FileRecord
	nextSpaceID int64
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		spaces:      make(map[int64]*spaceEntry),
		rentals:     make(map[string]model.Rental),
		nextSpaceID: 1,
	}
}

// Spaces возвращает репозиторий пространств хранения.
func (s *Store) Spaces() repository.StorageSpaceRepository { return &spaceRepo{s} }

// Rentals возвращает репозиторий аренд.
func (s *Store) Rentals() repository.RentalRepository { return &rentalRepo{s} }

// Files возвращает репозиторий записей о файлах.
func (s *Store) Files() repository.FileRecordRepository { return &fileRepo{s} }

// entry возвращает spaceEntry по идентификатору.
func (s *Store) entry(id int64) (*spaceEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.spaces[id]
	return e, ok
}

// --- StorageSpaceRepository ---

type spaceRepo struct {
	store *Store
}

func (r *spaceRepo) Create(_ context.Context, space *model.StorageSpace) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()
	space.ID = r.store.nextSpaceID
	r.store.nextSpaceID++
	space.CreatedAt = now
	space.UpdatedAt = now

	r.store.spaces[space.ID] = &spaceEntry{space: *space}
	return nil
}

func (r *spaceRepo) GetByID(_ context.Context, id int64) (*model.StorageSpace, error) {
	e, ok := r.store.entry(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	space := e.space
	return &space, nil
}

func (r *spaceRepo) ListAvailable(ctx context.Context) ([]*model.StorageSpace, error) {
	return r.list(func(space *model.StorageSpace) bool { return space.AvailableSpace > 0 })
}

func (r *spaceRepo) ListByOwner(_ context.Context, owner string) ([]*model.StorageSpace, error) {
	return r.list(func(space *model.StorageSpace) bool { return space.Owner == owner })
}

func (r *spaceRepo) list(match func(*model.StorageSpace) bool) ([]*model.StorageSpace, error) {
	r.store.mu.RLock()
	entries := make([]*spaceEntry, 0, len(r.store.spaces))
	for _, e := range r.store.spaces {
		entries = append(entries, e)
	}
	r.store.mu.RUnlock()

	var result []*model.StorageSpace
	for _, e := range entries {
		e.mu.Lock()
		space := e.space
		e.mu.Unlock()
		if match(&space) {
			s := space
			result = append(result, &s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *spaceRepo) NextID(_ context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.nextSpaceID, nil
}

func (r *spaceRepo) Reserve(_ context.Context, id, amount int64) error {
	e, ok := r.store.entry(id)
	if !ok {
		return repository.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.space.Frozen {
		return repository.ErrFrozen
	}
	if e.space.AvailableSpace < amount {
		return repository.ErrInsufficientCapacity
	}
	e.space.AvailableSpace -= amount
	e.space.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *spaceRepo) Release(_ context.Context, id, amount int64) (bool, error) {
	e, ok := r.store.entry(id)
	if !ok {
		return false, repository.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	clamped := e.space.AvailableSpace+amount > e.space.TotalSpace
	if clamped {
		e.space.AvailableSpace = e.space.TotalSpace
	} else {
		e.space.AvailableSpace += amount
	}
	e.space.UpdatedAt = time.Now().UTC()
	return clamped, nil
}

func (r *spaceRepo) SetFrozen(_ context.Context, id int64) error {
	e, ok := r.store.entry(id)
	if !ok {
		return repository.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.space.Frozen = true
	e.space.UpdatedAt = time.Now().UTC()
	return nil
}

// --- RentalRepository ---

type rentalRepo struct {
	store *Store
}

func (r *rentalRepo) Create(_ context.Context, rental *model.Rental) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.rentals {
		if existing.SpaceID == rental.SpaceID && existing.Renter == rental.Renter && existing.IsActive {
			return repository.ErrConflict
		}
	}

	if rental.ID == "" {
		rental.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rental.IsActive = true
	rental.CreatedAt = now
	rental.UpdatedAt = now
	r.store.rentals[rental.ID] = *rental
	return nil
}

func (r *rentalRepo) GetByID(_ context.Context, id string) (*model.Rental, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rental, ok := r.store.rentals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rental, nil
}

func (r *rentalRepo) Extend(_ context.Context, id string, amount int64, rentedUntil time.Time, paid string) (*model.Rental, error) {
	// Инкременты применяются под локом хранилища: конкурентные
	// расширения одной аренды не теряют объём и оплату друг друга.
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.rentals[id]
	if !ok || !existing.IsActive {
		return nil, repository.ErrNotFound
	}

	total, ok := new(big.Int).SetString(existing.PaidAmount, 10)
	if !ok {
		return nil, fmt.Errorf("повреждена сумма оплаты аренды %s: %q", id, existing.PaidAmount)
	}
	delta, ok := new(big.Int).SetString(paid, 10)
	if !ok {
		return nil, fmt.Errorf("некорректная сумма оплаты: %q", paid)
	}

	existing.RentedSpace += amount
	existing.RentedUntil = rentedUntil
	existing.PaidAmount = total.Add(total, delta).String()
	existing.UpdatedAt = time.Now().UTC()
	r.store.rentals[id] = existing
	result := existing
	return &result, nil
}

func (r *rentalRepo) Deactivate(_ context.Context, id string) (*model.Rental, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rental, ok := r.store.rentals[id]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if !rental.IsActive {
		result := rental
		return &result, false, nil
	}
	rental.IsActive = false
	rental.UpdatedAt = time.Now().UTC()
	r.store.rentals[id] = rental
	result := rental
	return &result, true, nil
}

func (r *rentalRepo) FindCurrent(_ context.Context, spaceID int64, renter string) (*model.Rental, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, rental := range r.store.rentals {
		if rental.SpaceID == spaceID && rental.Renter == renter && rental.IsActive {
			result := rental
			return &result, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *rentalRepo) ListActiveForAccount(_ context.Context, account string, now time.Time) ([]*model.Rental, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*model.Rental
	for _, rental := range r.store.rentals {
		if rental.Renter == account && rental.IsActive && now.Before(rental.RentedUntil) {
			item := rental
			result = append(result, &item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *rentalRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]*model.Rental, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*model.Rental
	for _, rental := range r.store.rentals {
		if rental.IsActive && !now.Before(rental.RentedUntil) {
			item := rental
			result = append(result, &item)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].RentedUntil.Before(result[j].RentedUntil)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// --- FileRecordRepository ---

type fileRepo struct {
	store *Store
}

func (r *fileRepo) Create(_ context.Context, record *model.FileRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.UploadedAt = time.Now().UTC()
	r.store.files = append(r.store.files, *record)
	return nil
}

func (r *fileRepo) ListBySpace(_ context.Context, spaceID int64) ([]*model.FileRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var result []*model.FileRecord
	for i := range r.store.files {
		if r.store.files[i].SpaceID == spaceID {
			record := r.store.files[i]
			result = append(result, &record)
		}
	}
	return result, nil
}
