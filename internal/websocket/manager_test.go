package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(id, userID, sessionID string) *Client {
	return &Client{
		ID:        id,
		UserID:    userID,
		SessionID: sessionID,
		Send:      make(chan []byte, 8),
	}
}

func newTestManager() *Manager {
	return NewManager(3, time.Second, time.Minute, 54*time.Second)
}

func TestManager_BroadcastToSessionExcludesSender(t *testing.T) {
	m := newTestManager()

	alice := newTestClient("c1", "alice", "s1")
	bob := newTestClient("c2", "bob", "s1")
	carol := newTestClient("c3", "carol", "s2")
	m.registerClient(alice)
	m.registerClient(bob)
	m.registerClient(carol)

	env, _ := NewEnvelope(TypePresenceUpdate, PresencePayload{SessionID: "s1"})
	if err := m.BroadcastToSession("s1", env, "alice"); err != nil {
		t.Fatalf("BroadcastToSession() error = %v", err)
	}

	select {
	case data := <-bob.Send:
		var got Envelope
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if got.Type != TypePresenceUpdate {
			t.Errorf("type = %s, want presence_update", got.Type)
		}
	default:
		t.Fatal("bob should receive the broadcast")
	}

	select {
	case <-alice.Send:
		t.Error("sender should be excluded from the broadcast")
	default:
	}

	select {
	case <-carol.Send:
		t.Error("other sessions should not receive the broadcast")
	default:
	}
}

func TestManager_BroadcastToUnknownSessionIsNoOp(t *testing.T) {
	m := newTestManager()

	env, _ := NewEnvelope(TypeAck, AckPayload{})
	if err := m.BroadcastToSession("missing", env, ""); err != nil {
		t.Fatalf("BroadcastToSession() error = %v", err)
	}
}

func TestManager_MaxConnectionsPerUser(t *testing.T) {
	m := NewManager(2, time.Second, time.Minute, 54*time.Second)

	m.registerClient(newTestClient("c1", "alice", "s1"))
	m.registerClient(newTestClient("c2", "alice", "s1"))

	over := newTestClient("c3", "alice", "s1")
	m.registerClient(over)

	if got := m.UserConnections("alice"); got != 2 {
		t.Errorf("UserConnections() = %d, want 2", got)
	}
	if _, open := <-over.Send; open {
		t.Error("rejected client's send channel should be closed")
	}
}

func TestManager_UnregisterCleansIndexes(t *testing.T) {
	m := newTestManager()

	alice := newTestClient("c1", "alice", "s1")
	m.registerClient(alice)

	if got := m.SessionConnections("s1"); got != 1 {
		t.Fatalf("SessionConnections() = %d, want 1", got)
	}

	m.unregisterClient(alice)

	if got := m.SessionConnections("s1"); got != 0 {
		t.Errorf("SessionConnections() after unregister = %d, want 0", got)
	}
	if got := m.UserConnections("alice"); got != 0 {
		t.Errorf("UserConnections() after unregister = %d, want 0", got)
	}
	if _, open := <-alice.Send; open {
		t.Error("unregistered client's send channel should be closed")
	}

	// Repeating the unregister must not panic.
	m.unregisterClient(alice)
}

func TestManager_ProcessMessageDispatchesBatches(t *testing.T) {
	m := newTestManager()

	var seen []EnvelopeType
	m.SetMessageHandler(handlerFunc(func(client *Client, env *Envelope) error {
		seen = append(seen, env.Type)
		return nil
	}))

	client := newTestClient("c1", "alice", "s1")

	single, _ := json.Marshal(Envelope{Type: TypeAck})
	m.processMessage(&ClientMessage{Client: client, Message: single})

	batch, _ := json.Marshal([]Envelope{{Type: TypePresenceUpdate}, {Type: TypeDocumentChange}})
	m.processMessage(&ClientMessage{Client: client, Message: batch})

	want := []EnvelopeType{TypeAck, TypePresenceUpdate, TypeDocumentChange}
	if len(seen) != len(want) {
		t.Fatalf("handled %d envelopes, want %d", len(seen), len(want))
	}
	for i, typ := range want {
		if seen[i] != typ {
			t.Errorf("envelope %d: type = %s, want %s", i, seen[i], typ)
		}
	}
}

type handlerFunc func(client *Client, env *Envelope) error

func (f handlerFunc) HandleEnvelope(client *Client, env *Envelope) error {
	return f(client, env)
}
