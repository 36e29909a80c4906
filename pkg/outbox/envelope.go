package outbox

import (
	"encoding/json"
	"time"

	"github.com/brickyield/brickyield-backend/pkg/types"
)

// ActorRef identifies the wallet that produced the event.
type ActorRef struct {
	Caller types.Address `json:"caller"`
	Role   string        `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
