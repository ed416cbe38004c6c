// ABOUTME: Tests for the broadcast hub fan-out.

package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftline/presence/internal/records"
)

func TestHubFanOut(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ctx := context.Background()
	a, _ := hub.Subscribe(ctx)
	b, _ := hub.Subscribe(ctx)

	event := records.AttendanceEvent{ID: 1, EmployeeID: "EMP001", Kind: records.KindCheckIn}
	hub.Publish(event)

	for name, ch := range map[string]<-chan records.AttendanceEvent{"a": a, "b": b} {
		select {
		case got := <-ch:
			assert.Equal(t, event, got)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s did not receive the event", name)
		}
	}
}

func TestHubUnsubscribeOnContextCancel(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	hub.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.subscribers) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestHubExplicitUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ch, subID := hub.Subscribe(context.Background())
	hub.Unsubscribe(subID)

	hub.Publish(records.AttendanceEvent{ID: 1})
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(time.Second):
		t.Fatal("unsubscribed channel was not closed")
	}
}

func TestHubConcurrentPublishUnsubscribe(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	// Publishing while subscribers churn must never send on a closed
	// channel.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		_, subID := hub.Subscribe(context.Background())
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				hub.Publish(records.AttendanceEvent{ID: int64(j + 1)})
			}
		}()
		go func(id string) {
			defer wg.Done()
			hub.Unsubscribe(id)
		}(subID)
	}
	wg.Wait()
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	ch, _ := hub.Subscribe(context.Background())
	for i := 0; i < subscriberBufferSize+10; i++ {
		hub.Publish(records.AttendanceEvent{ID: int64(i + 1)})
	}

	// The buffer holds the first events; the overflow is dropped, not
	// blocked on.
	assert.Len(t, ch, subscriberBufferSize)
}
