package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventNowPlaying)

	bus.Publish(EventNowPlaying, Payload{"title": "song"})

	select {
	case payload := <-sub:
		if payload["title"] != "song" {
			t.Errorf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no payload received")
	}
}

func TestPublishSkipsOtherEventTypes(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventLiveDetected)

	bus.Publish(EventNowPlaying, Payload{"title": "song"})

	select {
	case payload := <-sub:
		t.Errorf("unexpected payload %v", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPhaseChange)

	// Fill the subscriber buffer and keep publishing; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(EventPhaseChange, Payload{"n": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	_ = sub
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventButtonPress)
	bus.Unsubscribe(EventButtonPress, sub)

	if _, ok := <-sub; ok {
		t.Error("channel still open after unsubscribe")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventButtonPress, Payload{})
}
