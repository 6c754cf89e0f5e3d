package websocket

import (
	"bytes"
	"encoding/json"
	"log"
	"sync"
	"time"
)

type ClientMessage struct {
	Client  *Client
	Message []byte
}

// Manager is the broadcast hub. Clients register under a session and a
// user; envelopes fan out to the other participants of the session.
type Manager struct {
	clients        map[string]*Client
	sessionIndex   map[string]map[string]bool
	userIndex      map[string]map[string]bool
	clientsMutex   sync.RWMutex
	Register       chan *Client
	Unregister     chan *Client
	HandleMessage  chan *ClientMessage
	maxConnPerUser int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
	messageHandler MessageHandler
}

type MessageHandler interface {
	HandleEnvelope(client *Client, env *Envelope) error
}

func NewManager(maxConnPerUser int, writeWait, pongWait, pingPeriod time.Duration) *Manager {
	return &Manager{
		clients:        make(map[string]*Client),
		sessionIndex:   make(map[string]map[string]bool),
		userIndex:      make(map[string]map[string]bool),
		Register:       make(chan *Client),
		Unregister:     make(chan *Client),
		HandleMessage:  make(chan *ClientMessage),
		maxConnPerUser: maxConnPerUser,
		writeWait:      writeWait,
		pongWait:       pongWait,
		pingPeriod:     pingPeriod,
	}
}

func (m *Manager) SetMessageHandler(handler MessageHandler) {
	m.messageHandler = handler
}

func (m *Manager) Run() {
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case clientMsg := <-m.HandleMessage:
			m.processMessage(clientMsg)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if m.userIndex[client.UserID] == nil {
		m.userIndex[client.UserID] = make(map[string]bool)
	}

	if len(m.userIndex[client.UserID]) >= m.maxConnPerUser {
		log.Printf("[Hub] max connections reached for user %s", client.UserID)
		close(client.Send)
		return
	}

	m.clients[client.ID] = client
	m.userIndex[client.UserID][client.ID] = true

	if client.SessionID != "" {
		if m.sessionIndex[client.SessionID] == nil {
			m.sessionIndex[client.SessionID] = make(map[string]bool)
		}
		m.sessionIndex[client.SessionID][client.ID] = true
	}

	log.Printf("[Hub] client registered: %s (user: %s, session: %s)", client.ID, client.UserID, client.SessionID)
}

func (m *Manager) unregisterClient(client *Client) {
	m.clientsMutex.Lock()
	defer m.clientsMutex.Unlock()

	if _, ok := m.clients[client.ID]; ok {
		delete(m.clients, client.ID)
		delete(m.userIndex[client.UserID], client.ID)
		if len(m.userIndex[client.UserID]) == 0 {
			delete(m.userIndex, client.UserID)
		}

		if client.SessionID != "" {
			delete(m.sessionIndex[client.SessionID], client.ID)
			if len(m.sessionIndex[client.SessionID]) == 0 {
				delete(m.sessionIndex, client.SessionID)
			}
		}

		close(client.Send)
		log.Printf("[Hub] client unregistered: %s", client.ID)
	}
}

func (m *Manager) processMessage(clientMsg *ClientMessage) {
	if m.messageHandler == nil {
		return
	}

	// Batched frames arrive as a JSON array of envelopes.
	trimmed := bytes.TrimLeft(clientMsg.Message, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var envs []Envelope
		if err := json.Unmarshal(clientMsg.Message, &envs); err != nil {
			log.Printf("[Hub] error unmarshaling batch: %v", err)
			return
		}
		for i := range envs {
			if err := m.messageHandler.HandleEnvelope(clientMsg.Client, &envs[i]); err != nil {
				log.Printf("[Hub] error handling envelope: %v", err)
			}
		}
		return
	}

	var env Envelope
	if err := json.Unmarshal(clientMsg.Message, &env); err != nil {
		log.Printf("[Hub] error unmarshaling envelope: %v", err)
		return
	}

	if err := m.messageHandler.HandleEnvelope(clientMsg.Client, &env); err != nil {
		log.Printf("[Hub] error handling envelope: %v", err)
	}
}

// BroadcastToSession sends an envelope to every client registered under
// sessionID except connections owned by excludeUserID.
func (m *Manager) BroadcastToSession(sessionID string, env *Envelope, excludeUserID string) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	messageBytes, err := json.Marshal(env)
	if err != nil {
		return err
	}

	clientIDs, exists := m.sessionIndex[sessionID]
	if !exists {
		return nil
	}

	for clientID := range clientIDs {
		client := m.clients[clientID]
		if client.UserID == excludeUserID {
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			log.Printf("[Hub] client %s send buffer full, dropping connection", clientID)
			go func(c *Client) { m.Unregister <- c }(client)
		}
	}

	return nil
}

func (m *Manager) SendToClient(clientID string, env *Envelope) error {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	client, exists := m.clients[clientID]
	if !exists {
		return nil
	}

	messageBytes, err := json.Marshal(env)
	if err != nil {
		return err
	}

	select {
	case client.Send <- messageBytes:
	default:
		log.Printf("[Hub] client %s send buffer full", clientID)
	}

	return nil
}

func (m *Manager) SessionConnections(sessionID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.sessionIndex[sessionID])
}

func (m *Manager) UserConnections(userID string) int {
	m.clientsMutex.RLock()
	defer m.clientsMutex.RUnlock()

	return len(m.userIndex[userID])
}
