package events

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan UpdateStatusEvent, 1)

	unsub := bus.Subscribe(func(e UpdateStatusEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(UpdateStatusEvent{Status: "searching", Timestamp: "2026-08-29T10:30:00Z"})

	got := <-received
	if got.Status != "searching" {
		t.Errorf("expected status searching, got %s", got.Status)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan UpdateStatusEvent, 1)
	received2 := make(chan UpdateStatusEvent, 1)

	unsub1 := bus.Subscribe(func(e UpdateStatusEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e UpdateStatusEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(UpdateStatusEvent{Status: "update_available"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan SettingsReloadedEvent, 1)

	unsub := bus.Subscribe(func(e SettingsReloadedEvent) { received <- e })

	bus.Publish(SettingsReloadedEvent{BetaUpdates: true})
	<-received

	unsub()

	bus.Publish(SettingsReloadedEvent{BetaUpdates: false})
	select {
	case <-received:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSelectivity(t *testing.T) {
	bus := New()
	statusReceived := make(chan bool, 1)
	logReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ UpdateStatusEvent) { statusReceived <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ LogEntryEvent) { logReceived <- true })
	defer unsub2()

	bus.Publish(UpdateStatusEvent{Status: "idle"})
	<-statusReceived

	select {
	case <-logReceived:
		t.Fatal("log subscriber should not see status events")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 2)

	unsub := SubscribeToChannel[UpdateStatusEvent](bus, ch)
	defer unsub()

	bus.Publish(UpdateStatusEvent{Status: "downloading"})

	select {
	case got := <-ch:
		ev, ok := got.(UpdateStatusEvent)
		if !ok || ev.Status != "downloading" {
			t.Errorf("unexpected event %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bridged event")
	}
}
