package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTradeExecuted          EventType = "trade.executed"
	EventChallengeStatusChanged EventType = "challenge.status_changed"
)

// Event is the envelope written to the event stream and the journal.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Type        EventType       `json:"type"`
	ChallengeID uuid.UUID       `json:"challenge_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an envelope.
func NewEvent(typ EventType, challengeID uuid.UUID, at time.Time, payload interface{}) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return &Event{
		ID:          uuid.New(),
		Type:        typ,
		ChallengeID: challengeID,
		OccurredAt:  at,
		Payload:     raw,
	}, nil
}

// StatusChange is the payload of challenge.status_changed.
type StatusChange struct {
	From      ChallengeStatus `json:"from"`
	To        ChallengeStatus `json:"to"`
	Triggered RuleName        `json:"triggered"`
}
