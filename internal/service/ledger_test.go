// ledger_test.go — тесты учёта ёмкости.
package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bigkaa/rentstore/internal/events"
)

func TestListSpaceValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		owner string
		total int64
		price int64
	}{
		{"пустой владелец", "", 100, 1},
		{"нулевая ёмкость", "alice", 0, 1},
		{"отрицательная ёмкость", "alice", -10, 1},
		{"отрицательная цена", "alice", 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.ListSpace(ctx, tt.owner, tt.total, tt.price)
			if !errors.Is(err, ErrInvalidParameters) {
				t.Errorf("err = %v, ожидалось ErrInvalidParameters", err)
			}
		})
	}
}

func TestListSpacePublishesEvent(t *testing.T) {
	env := newTestEnv(t)

	var got []events.Event
	env.bus.Subscribe(events.StorageAdded, func(e events.Event) {
		got = append(got, e)
	})

	space := env.addSpace(t, "alice", 100, 5)

	if space.AvailableSpace != space.TotalSpace {
		t.Errorf("AvailableSpace = %d, ожидалось %d", space.AvailableSpace, space.TotalSpace)
	}
	if len(got) != 1 {
		t.Fatalf("получено %d событий, ожидалось 1", len(got))
	}
	payload := got[0].Payload.(events.StorageAddedPayload)
	if payload.SpaceID != space.ID || payload.TotalSpace != 100 || payload.PricePerGB != 5 {
		t.Errorf("неожиданная нагрузка события: %+v", payload)
	}
}

func TestReserveAndRelease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space := env.addSpace(t, "alice", 100, 1)

	if err := env.ledger.Reserve(ctx, space.ID, 30); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	got, err := env.ledger.GetSpace(ctx, space.ID)
	if err != nil {
		t.Fatalf("GetSpace: %v", err)
	}
	if got.AvailableSpace != 70 {
		t.Errorf("AvailableSpace = %d, ожидалось 70", got.AvailableSpace)
	}

	if err := env.ledger.Release(ctx, space.ID, 30); err != nil {
		t.Fatalf("Release: %v", err)
	}
	got, _ = env.ledger.GetSpace(ctx, space.ID)
	if got.AvailableSpace != 100 {
		t.Errorf("AvailableSpace = %d, ожидалось 100", got.AvailableSpace)
	}
}

func TestReserveErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space := env.addSpace(t, "alice", 10, 1)

	if err := env.ledger.Reserve(ctx, space.ID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("нулевой объём: err = %v, ожидалось ErrInvalidAmount", err)
	}
	if err := env.ledger.Reserve(ctx, 9999, 1); !errors.Is(err, ErrUnknownSpace) {
		t.Errorf("неизвестное пространство: err = %v, ожидалось ErrUnknownSpace", err)
	}
	if err := env.ledger.Reserve(ctx, space.ID, 11); !errors.Is(err, ErrInsufficientCapacity) {
		t.Errorf("превышение остатка: err = %v, ожидалось ErrInsufficientCapacity", err)
	}

	// Отказ не изменил остаток.
	got, _ := env.ledger.GetSpace(ctx, space.ID)
	if got.AvailableSpace != 10 {
		t.Errorf("AvailableSpace = %d, отказ не должен менять остаток", got.AvailableSpace)
	}
}

func TestReserveFrozenSpace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space := env.addSpace(t, "alice", 10, 1)

	if err := env.ledger.Freeze(ctx, space.ID); err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if err := env.ledger.Reserve(ctx, space.ID, 1); !errors.Is(err, ErrSpaceFrozen) {
		t.Errorf("err = %v, ожидалось ErrSpaceFrozen", err)
	}
}

func TestReleaseClampFreezesSpace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space := env.addSpace(t, "alice", 10, 1)

	// Возврат без резервирования: остаток упёрся бы выше total_space.
	if err := env.ledger.Release(ctx, space.ID, 5); err != nil {
		t.Fatalf("Release: %v", err)
	}

	got, _ := env.ledger.GetSpace(ctx, space.ID)
	if got.AvailableSpace != 10 {
		t.Errorf("AvailableSpace = %d, возврат должен обрезаться по 10", got.AvailableSpace)
	}
	if !got.Frozen {
		t.Error("пространство должно быть заморожено после обрезанного возврата")
	}
}

// Конкурентные запросы на остаток: из 12 запросов по 6 ГБ на 10 ГБ
// свободного места должен победить ровно один.
func TestConcurrentReserveSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	space := env.addSpace(t, "alice", 10, 1)

	const workers = 12
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- env.ledger.Reserve(ctx, space.ID, 6)
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientCapacity):
			insufficient++
		default:
			t.Errorf("неожиданная ошибка: %v", err)
		}
	}

	if ok != 1 {
		t.Errorf("успешных резервирований %d, ожидалось ровно 1", ok)
	}
	if insufficient != workers-1 {
		t.Errorf("отказов %d, ожидалось %d", insufficient, workers-1)
	}

	got, _ := env.ledger.GetSpace(ctx, space.ID)
	if got.AvailableSpace != 4 {
		t.Errorf("AvailableSpace = %d, ожидалось 4", got.AvailableSpace)
	}
}

func TestNextIDSequential(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	next, err := env.ledger.NextID(ctx)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	space := env.addSpace(t, "alice", 10, 1)
	if space.ID != next {
		t.Errorf("ID = %d, NextID предсказал %d", space.ID, next)
	}

	next2, _ := env.ledger.NextID(ctx)
	if next2 != space.ID+1 {
		t.Errorf("NextID = %d, ожидалось %d", next2, space.ID+1)
	}
}
