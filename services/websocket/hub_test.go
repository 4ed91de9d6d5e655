package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(h *Hub, userID uint) *Client {
	return &Client{hub: h, send: make(chan []byte, 8), userID: userID}
}

func TestBroadcastEventReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := newTestClient(hub, 1)
	c2 := newTestClient(hub, 2)
	hub.register <- c1
	hub.register <- c2

	hub.BroadcastEvent(EventStudentCreated, map[string]interface{}{"id": 7})

	for _, c := range []*Client{c1, c2} {
		select {
		case raw := <-c.send:
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("invalid envelope: %v", err)
			}
			if msg.Type != EventStudentCreated {
				t.Fatalf("expected type %q, got %q", EventStudentCreated, msg.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %d did not receive the broadcast", c.userID)
		}
	}
}

func TestBroadcastToUserTargetsOnlyThatUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := newTestClient(hub, 1)
	c2 := newTestClient(hub, 2)
	hub.register <- c1
	hub.register <- c2

	waitForClients(t, hub, 2)

	hub.BroadcastToUser(2, Message{Type: EventNotification, Data: "hi"})

	select {
	case <-c2.send:
	case <-time.After(time.Second):
		t.Fatalf("target user did not receive the message")
	}

	select {
	case <-c1.send:
		t.Fatalf("non-target user received the message")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := &Client{hub: hub, send: make(chan []byte), userID: 1}
	hub.register <- slow
	waitForClients(t, hub, 1)

	// Nothing reads slow.send, so the hub must evict it instead of blocking.
	hub.BroadcastEvent(EventStudentUpdated, nil)
	waitForClients(t, hub, 0)
}

func TestGetClientCount(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	if n := hub.GetClientCount(); n != 0 {
		t.Fatalf("expected 0 clients, got %d", n)
	}

	c := newTestClient(hub, 1)
	hub.register <- c
	waitForClients(t, hub, 1)

	hub.unregister <- c
	waitForClients(t, hub, 0)
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.GetClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, hub.GetClientCount())
}
