package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EventKind defines the type of unit of work handled by the ingress pipeline.
type EventKind string

const (
	EventJoin       EventKind = "join"
	EventLeave      EventKind = "leave"
	EventEnterEdit  EventKind = "enter-edit"
	EventEditAction EventKind = "edit-action"
	EventExitEdit   EventKind = "exit-edit"
)

// SessionContext is attached to a session once admission succeeds and never changes afterwards.
type SessionContext struct {
	UserID    int64
	PictureID int64
	User      UserSummary
}

// Event is an immutable envelope created from an inbound frame or a session
// lifecycle occurrence. It is consumed exactly once by a pipeline worker.
type Event struct {
	Kind       EventKind
	PictureID  int64
	UserID     int64
	SessionID  uuid.UUID
	User       UserSummary
	EditAction string
	Payload    json.RawMessage
}

// NewEvent builds an event for the given session context.
func NewEvent(kind EventKind, sc SessionContext, sessionID uuid.UUID) Event {
	return Event{
		Kind:      kind,
		PictureID: sc.PictureID,
		UserID:    sc.UserID,
		SessionID: sessionID,
		User:      sc.User,
	}
}

// ResourceKey returns the key used to route the event to its ordered lane.
func (e Event) ResourceKey() int64 {
	return e.PictureID
}
