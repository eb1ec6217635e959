package notify

import (
	"testing"
	"time"
)

func TestHubDeliversToAddressedUserOnly(t *testing.T) {
	hub := NewHub()

	ch1, cancel1 := hub.Subscribe(1)
	defer cancel1()
	ch2, cancel2 := hub.Subscribe(2)
	defer cancel2()

	hub.Emit(NewEvent(EventSwapRequested, 1, "swap-1", 42, ""))

	select {
	case e := <-ch1:
		if e.Name != EventSwapRequested || e.SwapID != "swap-1" {
			t.Errorf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("expected user 1 to receive the event")
	}

	select {
	case e := <-ch2:
		t.Errorf("user 2 should not receive user 1's event, got %+v", e)
	default:
	}
}

func TestHubEmitNeverBlocks(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(1)
	defer cancel()

	// Overfill the subscriber buffer; the surplus is dropped, not queued.
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Emit(NewEvent(EventSwapRequested, 1, "swap-1", 0, ""))
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			if received != subscriberBuffer {
				t.Errorf("expected %d buffered events, got %d", subscriberBuffer, received)
			}
			return
		}
	}
}

func TestHubCancelStopsDelivery(t *testing.T) {
	hub := NewHub()

	ch, cancel := hub.Subscribe(1)
	cancel()

	// Emitting after cancel must not panic or deliver.
	hub.Emit(NewEvent(EventSwapRejected, 1, "swap-1", 0, ""))

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed with no events")
	}

	// Cancel is idempotent.
	cancel()
}

func TestHubMultipleSubscribersPerUser(t *testing.T) {
	hub := NewHub()

	ch1, cancel1 := hub.Subscribe(1)
	defer cancel1()
	ch2, cancel2 := hub.Subscribe(1)
	defer cancel2()

	hub.Emit(NewEvent(EventSwapCompleted, 1, "swap-1", 0, ""))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	var d Dispatcher = Discard{}
	d.Emit(NewEvent(EventSwapRequested, 1, "swap-1", 0, ""))
}
