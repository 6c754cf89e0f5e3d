package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"cms-collab-server/internal/domain"

	"github.com/gorilla/websocket"
)

// Bridge is the client side of the collaboration channel: one duplex
// connection that sends an auth envelope on open and then relays typed
// envelopes both ways. Broadcasts on a closed connection are dropped
// silently; callers watch IsConnected separately.
type Bridge struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	url       string
	user      domain.User
	connected bool

	handlersMu sync.RWMutex
	handlers   []func(*Envelope)

	writeWait time.Duration
}

func NewBridge(writeWait time.Duration) *Bridge {
	return &Bridge{
		writeWait: writeWait,
	}
}

// Connect dials url, sends the auth envelope identifying user, and
// starts reading. The first inbound envelope is the server's auth ack;
// handlers see it before any broadcast.
func (b *Bridge) Connect(ctx context.Context, url string, user domain.User) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.conn = conn
	b.url = url
	b.user = user
	b.connected = true
	b.mu.Unlock()

	authEnv, err := NewEnvelope(TypeAuth, AuthPayloadFromUser(user))
	if err != nil {
		return err
	}
	if err := b.writeEnvelope(authEnv); err != nil {
		return err
	}

	go b.readLoop(conn)
	return nil
}

// OnMessage registers a handler called once per inbound envelope, in
// registration order.
func (b *Bridge) OnMessage(handler func(*Envelope)) {
	b.handlersMu.Lock()
	b.handlers = append(b.handlers, handler)
	b.handlersMu.Unlock()
}

func (b *Bridge) BroadcastPresence(sessionID string, presence *domain.UserPresence) {
	env, err := NewEnvelope(TypePresenceUpdate, PresencePayload{
		SessionID: sessionID,
		Presence:  presence,
	})
	if err != nil {
		log.Printf("[Bridge] failed to build presence envelope: %v", err)
		return
	}
	b.send(env)
}

func (b *Bridge) BroadcastChange(change *domain.ChangeEvent) {
	env, err := NewEnvelope(TypeDocumentChange, change)
	if err != nil {
		log.Printf("[Bridge] failed to build change envelope: %v", err)
		return
	}
	b.send(env)
}

// BatchBroadcast coalesces envelopes into one wire frame. High-rate
// callers (rapid cursor movement) trade a little latency for fewer
// sends.
func (b *Bridge) BatchBroadcast(envelopes []*Envelope) {
	if len(envelopes) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected || b.conn == nil {
		return
	}

	data, err := json.Marshal(envelopes)
	if err != nil {
		log.Printf("[Bridge] failed to marshal batch: %v", err)
		return
	}

	b.conn.SetWriteDeadline(time.Now().Add(b.writeWait))
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[Bridge] batch send failed: %v", err)
		b.markDisconnectedLocked()
	}
}

func (b *Bridge) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil
	}

	b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(b.writeWait))
	err := b.conn.Close()
	b.conn = nil
	b.connected = false
	return err
}

// Reconnect tears down any live connection and dials the last url
// again. Returns true when the new connection is up.
func (b *Bridge) Reconnect(ctx context.Context) (bool, error) {
	b.mu.Lock()
	url := b.url
	user := b.user
	b.mu.Unlock()

	if url == "" {
		return false, nil
	}

	b.Disconnect()

	if err := b.Connect(ctx, url, user); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *Bridge) send(env *Envelope) {
	if err := b.writeEnvelope(env); err != nil {
		log.Printf("[Bridge] send failed: %v", err)
	}
}

func (b *Bridge) writeEnvelope(env *Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.connected || b.conn == nil {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	b.conn.SetWriteDeadline(time.Now().Add(b.writeWait))
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		b.markDisconnectedLocked()
		return err
	}
	return nil
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			b.mu.Lock()
			if b.conn == conn {
				b.markDisconnectedLocked()
			}
			b.mu.Unlock()
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[Bridge] bad inbound envelope: %v", err)
			continue
		}

		b.handlersMu.RLock()
		handlers := make([]func(*Envelope), len(b.handlers))
		copy(handlers, b.handlers)
		b.handlersMu.RUnlock()

		for _, handler := range handlers {
			handler(&env)
		}
	}
}

func (b *Bridge) markDisconnectedLocked() {
	b.connected = false
}
