package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

// EnvelopeVersion is written into every stored payload. Readers reject newer versions.
const EnvelopeVersion = 1

// ErrEmptyData is returned for an envelope whose data is missing or JSON null.
var ErrEmptyData = errors.New("envelope carries no data")

// Actor identifies the user whose request produced the event.
type Actor struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role,omitempty"`
}

// Envelope is the document stored in outbox_events.payload and forwarded to the
// broker unchanged. EventID equals the outbox row id so consumers can dedupe.
type Envelope struct {
	Version    int                   `json:"version"`
	EventID    uuid.UUID             `json:"event_id"`
	EventType  enums.OutboxEventType `json:"event_type"`
	OccurredAt time.Time             `json:"occurred_at"`
	Actor      *Actor                `json:"actor,omitempty"`
	Data       json.RawMessage       `json:"data"`
}

// DecodeEnvelope parses a stored payload.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version < 1 || env.Version > EnvelopeVersion {
		return Envelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Envelope{}, ErrEmptyData
	}
	return env, nil
}

// Into unmarshals the event data into dst.
func (e Envelope) Into(dst any) error {
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode %s data: %w", e.EventType, err)
	}
	return nil
}
