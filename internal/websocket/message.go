package websocket

import (
	"encoding/json"

	"cms-collab-server/internal/domain"
)

type EnvelopeType string

const (
	TypeAuth           EnvelopeType = "auth"
	TypePresenceUpdate EnvelopeType = "presence_update"
	TypeDocumentChange EnvelopeType = "document_change"
	TypeAck            EnvelopeType = "ack"
)

// Envelope is the wire contract: every frame is {type, data}. Batched
// frames carry a JSON array of envelopes in a single text message.
type Envelope struct {
	Type EnvelopeType    `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type AuthPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

type PresencePayload struct {
	SessionID string               `json:"session_id"`
	Presence  *domain.UserPresence `json:"presence"`
}

type AckPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func NewEnvelope(envType EnvelopeType, payload interface{}) (*Envelope, error) {
	var data json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = bytes
	}

	return &Envelope{
		Type: envType,
		Data: data,
	}, nil
}

func (e *Envelope) UnmarshalData(v interface{}) error {
	if e.Data == nil {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

func AuthPayloadFromUser(user domain.User) AuthPayload {
	return AuthPayload{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	}
}
