package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/junaidrashid-git/treatnaturally-api/logging"
	"github.com/junaidrashid-git/treatnaturally-api/models"
	"github.com/stretchr/testify/assert"
)

func TestBusDeliversTypedEvents(t *testing.T) {
	bus := NewBus(logging.Discard())

	var got []uint
	On(bus, func(_ context.Context, e OrderCreated) error {
		got = append(got, e.Order.ID)
		return nil
	})
	On(bus, func(_ context.Context, e CustomerMembershipChanged) error {
		t.Fatalf("membership handler must not receive %s", e.Name())
		return nil
	})

	bus.Publish(context.Background(), OrderCreated{Order: models.Order{ID: 7}})

	assert.Equal(t, []uint{7}, got)
}

func TestBusSubscribeAllSeesEveryEvent(t *testing.T) {
	bus := NewBus(logging.Discard())

	var names []string
	bus.SubscribeAll(func(_ context.Context, e Event) error {
		names = append(names, e.Name())
		return nil
	})

	bus.Publish(context.Background(), OrderCreated{})
	bus.Publish(context.Background(), AddressLinked{CustomerID: 1, Kind: models.AddressKindBilling})

	assert.Equal(t, []string{NameOrderCreated, NameAddressLinked}, names)
}

func TestBusIsolatesFailingHandlers(t *testing.T) {
	bus := NewBus(logging.Discard())

	calls := 0
	bus.Subscribe(NameOrderCreated, func(context.Context, Event) error {
		calls++
		return errors.New("smtp down")
	})
	bus.Subscribe(NameOrderCreated, func(context.Context, Event) error {
		calls++
		panic("boom")
	})
	bus.Subscribe(NameOrderCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), OrderCreated{})
	})
	assert.Equal(t, 3, calls)
}

func TestBusConcurrentPublish(t *testing.T) {
	bus := NewBus(logging.Discard())

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(context.Context, Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), CustomerRegistered{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, count)
}

func TestEventKeys(t *testing.T) {
	assert.Equal(t, "42", OrderCreated{Order: models.Order{ID: 42}}.Key())
	assert.Equal(t, "3", CustomerMembershipChanged{CustomerID: 3}.Key())
	assert.Equal(t, "9", OrderPaymentStatusChanged{OrderID: 9}.Key())
}
