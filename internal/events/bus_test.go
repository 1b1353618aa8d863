package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []Kind
	bus.Subscribe(StorageAdded, func(e Event) {
		got = append(got, e.Kind)
	})

	bus.Publish(Event{Kind: StorageAdded, At: time.Now()})
	bus.Publish(Event{Kind: StorageRented, At: time.Now()})
	bus.Publish(Event{Kind: StorageAdded, At: time.Now()})

	if len(got) != 2 {
		t.Fatalf("доставлено %d событий, ожидалось 2", len(got))
	}
	for _, k := range got {
		if k != StorageAdded {
			t.Errorf("доставлено событие %q, подписка была на %q", k, StorageAdded)
		}
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus()

	var got []Kind
	bus.SubscribeAll(func(e Event) {
		got = append(got, e.Kind)
	})

	bus.Publish(Event{Kind: StorageAdded})
	bus.Publish(Event{Kind: FileUploaded})

	want := []Kind{StorageAdded, FileUploaded}
	if len(got) != len(want) {
		t.Fatalf("доставлено %d событий, ожидалось %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("событие %d: %q, ожидалось %q (порядок фиксации)", i, got[i], want[i])
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	unsubscribe := bus.Subscribe(StorageRented, func(Event) { count++ })

	bus.Publish(Event{Kind: StorageRented})
	unsubscribe()
	bus.Publish(Event{Kind: StorageRented})

	if count != 1 {
		t.Errorf("после отписки доставлено %d событий, ожидалось 1", count)
	}

	// Повторная отписка — no-op
	unsubscribe()
}

func TestBusMultipleListenersOrder(t *testing.T) {
	bus := NewBus()

	var first, second []int64
	bus.Subscribe(StorageAdded, func(e Event) {
		first = append(first, e.Payload.(StorageAddedPayload).SpaceID)
	})
	bus.Subscribe(StorageAdded, func(e Event) {
		second = append(second, e.Payload.(StorageAddedPayload).SpaceID)
	})

	for i := int64(1); i <= 3; i++ {
		bus.Publish(Event{Kind: StorageAdded, Payload: StorageAddedPayload{SpaceID: i}})
	}

	for _, seq := range [][]int64{first, second} {
		if len(seq) != 3 {
			t.Fatalf("подписчик получил %d событий, ожидалось 3", len(seq))
		}
		for i, id := range seq {
			if id != int64(i+1) {
				t.Errorf("подписчик увидел события вне порядка фиксации: %v", seq)
			}
		}
	}
}
