package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// EventType names what happened to a line-item.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// LineItemEvent is a lightweight change notice. Consumers fetch the current
// record from the database.
type LineItemEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    int64     `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	Kind      core.Kind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLineItemEvent(typ EventType, userID int64, kind core.Kind, itemID int64) *LineItemEvent {
	return &LineItemEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		UserID:    userID,
		ItemID:    itemID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

func (e *LineItemEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LineItemEventFromJSON decodes and checks an event.
func LineItemEventFromJSON(data []byte) (*LineItemEvent, error) {
	var evt LineItemEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	switch evt.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", evt.Type)
	}
	if !evt.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownKind, evt.Kind)
	}
	return &evt, nil
}
