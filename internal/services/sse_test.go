package services

import (
	"fmt"
	"testing"
	"time"
)

func TestSSEHub_NewSSEHub(t *testing.T) {
	hub := NewSSEHub()
	if hub == nil {
		t.Fatal("NewSSEHub should not return nil")
	}
	if hub.clients == nil {
		t.Error("clients map should be initialized")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("new hub should have 0 clients, got %d", hub.ClientCount())
	}
}

func TestSSEHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewSSEHub()

	hub.Subscribe("client1", 1)
	hub.Subscribe("client2", 2)
	if hub.ClientCount() != 2 {
		t.Fatalf("expected 2 clients, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("client1")
	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after unsubscribe, got %d", hub.ClientCount())
	}

	hub.Unsubscribe("nonexistent")
	if hub.ClientCount() != 1 {
		t.Errorf("unsubscribing nonexistent should not affect count, got %d", hub.ClientCount())
	}
}

func TestSSEHub_PublishTargetsUser(t *testing.T) {
	hub := NewSSEHub()

	alice := hub.Subscribe("a", 1)
	bob := hub.Subscribe("b", 2)

	hub.Publish(UserEvent{UserID: 1, Type: "notification", Data: "hello alice"})

	select {
	case ev := <-alice:
		if ev.Data != "hello alice" {
			t.Errorf("unexpected data %v", ev.Data)
		}
		if ev.CreatedAt.IsZero() {
			t.Error("CreatedAt should be stamped")
		}
	case <-time.After(time.Second):
		t.Fatal("alice did not receive her event")
	}

	select {
	case ev := <-bob:
		t.Fatalf("bob received an event for alice: %+v", ev)
	default:
	}
}

func TestSSEHub_BroadcastWhenUserIDZero(t *testing.T) {
	hub := NewSSEHub()
	a := hub.Subscribe("a", 1)
	b := hub.Subscribe("b", 2)

	hub.Publish(UserEvent{Type: "maintenance"})

	for name, ch := range map[string]<-chan UserEvent{"a": a, "b": b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Errorf("client %s missed broadcast", name)
		}
	}
}

func TestSSEHub_SlowClientDropsEvents(t *testing.T) {
	hub := NewSSEHub()
	ch := hub.Subscribe("slow", 1)

	for i := 0; i < 150; i++ {
		hub.Publish(UserEvent{UserID: 1, Type: "tick", Data: fmt.Sprint(i)})
	}

	if len(ch) != 100 {
		t.Errorf("buffer should be full at 100, got %d", len(ch))
	}
}

func TestSSEHub_UnsubscribeClosesChannel(t *testing.T) {
	hub := NewSSEHub()
	ch := hub.Subscribe("c", 1)
	hub.Unsubscribe("c")

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
}

func TestGetSSEHub_Singleton(t *testing.T) {
	if GetSSEHub() != GetSSEHub() {
		t.Error("GetSSEHub should return the same instance")
	}
}
