package domain

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
)

// MessageType is the "type" field of inbound frames and outbound notifications.
type MessageType string

const (
	MessageInfo       MessageType = "info"
	MessageError      MessageType = "error"
	MessageEnterEdit  MessageType = "enterEdit"
	MessageExitEdit   MessageType = "exitEdit"
	MessageEditAction MessageType = "editAction"
)

// Well-known edit actions. Other non-empty actions are forwarded verbatim.
const (
	EditActionZoomIn      = "ZOOM_IN"
	EditActionZoomOut     = "ZOOM_OUT"
	EditActionRotateLeft  = "ROTATE_LEFT"
	EditActionRotateRight = "ROTATE_RIGHT"
)

var editActionText = map[string]string{
	EditActionZoomIn:      "zoom in",
	EditActionZoomOut:     "zoom out",
	EditActionRotateLeft:  "rotate left",
	EditActionRotateRight: "rotate right",
}

// EditActionText returns a human readable label for an edit action.
func EditActionText(action string) string {
	if text, ok := editActionText[action]; ok {
		return text
	}
	return action
}

// Frame is the structure for messages sent from the client.
type Frame struct {
	Type       MessageType     `json:"type"`
	EditAction string          `json:"editAction,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// EventKind maps the frame type to the pipeline event kind.
func (f Frame) EventKind() (EventKind, error) {
	switch f.Type {
	case MessageEnterEdit:
		return EventEnterEdit, nil
	case MessageExitEdit:
		return EventExitEdit, nil
	case MessageEditAction:
		if f.EditAction == "" {
			return "", apperrors.InvalidMessage("editAction frame without action")
		}
		return EventEditAction, nil
	default:
		return "", apperrors.InvalidMessage("unknown message type %q", f.Type)
	}
}

// Notification is the payload sent over WebSocket. It is built by a worker and
// discarded after delivery.
type Notification struct {
	Type          MessageType     `json:"type"`
	PictureID     int64           `json:"-"`
	Message       string          `json:"message,omitempty"`
	EditAction    string          `json:"editAction,omitempty"`
	ActionPayload json.RawMessage `json:"payload,omitempty"`
	User          UserSummary     `json:"user"`
}

// JoinedNotification announces a new session to every session of the picture.
func JoinedNotification(pictureID int64, user UserSummary) Notification {
	return Notification{
		Type:      MessageInfo,
		PictureID: pictureID,
		Message:   fmt.Sprintf("%s joined editing", user.Name),
		User:      user,
	}
}

// LeftNotification announces a closed session to the sessions that remain.
func LeftNotification(pictureID int64, user UserSummary) Notification {
	return Notification{
		Type:      MessageInfo,
		PictureID: pictureID,
		Message:   fmt.Sprintf("%s left editing", user.Name),
		User:      user,
	}
}

// EnterEditNotification announces that the user now holds the edit lock.
func EnterEditNotification(pictureID int64, user UserSummary) Notification {
	return Notification{
		Type:      MessageEnterEdit,
		PictureID: pictureID,
		Message:   fmt.Sprintf("%s started editing", user.Name),
		User:      user,
	}
}

// ExitEditNotification announces that the user released the edit lock.
func ExitEditNotification(pictureID int64, user UserSummary) Notification {
	return Notification{
		Type:      MessageExitEdit,
		PictureID: pictureID,
		Message:   fmt.Sprintf("%s exited editing", user.Name),
		User:      user,
	}
}

// EditActionNotification relays an edit by the lock holder. The payload is
// forwarded untouched.
func EditActionNotification(pictureID int64, user UserSummary, action string, payload json.RawMessage) Notification {
	return Notification{
		Type:          MessageEditAction,
		PictureID:     pictureID,
		Message:       fmt.Sprintf("%s performed %s", user.Name, EditActionText(action)),
		EditAction:    action,
		ActionPayload: payload,
		User:          user,
	}
}

// ErrorNotification is sent to the originating session only.
func ErrorNotification(pictureID int64, user UserSummary, message string) Notification {
	return Notification{
		Type:      MessageError,
		PictureID: pictureID,
		Message:   message,
		User:      user,
	}
}
