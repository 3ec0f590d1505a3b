package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire form of a domain event. The payload is deliberately
// small; the audit worker persists it as-is and never re-reads the entity.
type Envelope struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	OwnerID   int64     `json:"owner_id"`
	EntityID  int64     `json:"entity_id"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEnvelope(eventType string, ownerID, entityID int64, detail string) *Envelope {
	return &Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		OwnerID:   ownerID,
		EntityID:  entityID,
		Detail:    detail,
		Timestamp: time.Now(),
	}
}

func (e *Envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func EnvelopeFromJSON(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
