package diag

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ChildSpawned, 1)

	unsub := bus.Subscribe(func(e ChildSpawned) {
		received <- e
	})
	defer unsub()

	bus.Publish(ChildSpawned{Pid: 123, Seqnum: 7})

	got := <-received
	if got.Pid != 123 || got.Seqnum != 7 {
		t.Errorf("got %+v", got)
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()
	spawned := make(chan bool, 1)
	reaped := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ ChildSpawned) { spawned <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ ChildReaped) { reaped <- true })
	defer unsub2()

	bus.Publish(ChildSpawned{Pid: 1})
	<-spawned

	select {
	case <-reaped:
		t.Fatal("ChildReaped subscriber should not have received ChildSpawned")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan bool, 1)

	unsub := bus.Subscribe(func(_ EventDropped) { received <- true })
	bus.Publish(EventDropped{Reason: "no-seqnum"})
	<-received

	unsub()
	bus.Publish(EventDropped{Reason: "no-seqnum"})
	select {
	case <-received:
		t.Fatal("should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}
