// service_test.go — общие помощники тестов бизнес-уровня.
package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bigkaa/rentstore/internal/domain/model"
	"github.com/bigkaa/rentstore/internal/events"
	"github.com/bigkaa/rentstore/internal/repository/memory"
)

// testEnv — собранный на in-memory хранилище набор сервисов.
type testEnv struct {
	store    *memory.Store
	bus      *events.Bus
	ledger   *CapacityLedger
	registry *RentalRegistry
	mp       *Marketplace
	uploader *fakeUploader
}

// fakeUploader — заглушка Upload Sidecar.
type fakeUploader struct {
	hash  string
	err   error
	calls int
}

func (u *fakeUploader) Upload(_ context.Context, _ string, data io.Reader) (string, int64, error) {
	u.calls++
	if u.err != nil {
		return "", 0, u.err
	}
	n, _ := io.Copy(io.Discard, data)
	return u.hash, n, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	bus := events.NewBus()
	ledger := NewCapacityLedger(store.Spaces(), bus, logger)
	registry := NewRentalRegistry(ledger, store.Rentals(), store.Files(), bus, logger)
	uploader := &fakeUploader{hash: "a3f1"}
	mp := NewMarketplace(ledger, registry, uploader, bus, 16, time.Minute, logger)

	return &testEnv{
		store:    store,
		bus:      bus,
		ledger:   ledger,
		registry: registry,
		mp:       mp,
		uploader: uploader,
	}
}

// addSpace создаёт пространство и возвращает его.
func (e *testEnv) addSpace(t *testing.T, owner string, total, price int64) *model.StorageSpace {
	t.Helper()
	space, err := e.ledger.ListSpace(context.Background(), owner, total, price)
	if err != nil {
		t.Fatalf("ListSpace: %v", err)
	}
	return space
}

// setNow подменяет источник времени реестра.
func (e *testEnv) setNow(now time.Time) {
	e.registry.now = func() time.Time { return now }
}
