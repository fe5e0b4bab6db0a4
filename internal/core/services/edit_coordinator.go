package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lorrc/picture-collab/internal/core/domain"
	"github.com/lorrc/picture-collab/internal/core/editlock"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/ports"
	"github.com/lorrc/picture-collab/internal/infrastructure/logging"
	"github.com/lorrc/picture-collab/internal/infrastructure/metrics"
)

// EditCoordinator runs the edit-lock transitions for events handed over by the
// ingress pipeline and decides what each one broadcasts. The pipeline calls it
// from a single worker per picture, so a transition and its broadcast are
// never interleaved with another event of the same picture.
type EditCoordinator struct {
	locks       *editlock.Table
	broadcaster ports.Broadcaster
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

var _ ports.EventProcessor = (*EditCoordinator)(nil)

// NewEditCoordinator creates a new coordinator.
func NewEditCoordinator(locks *editlock.Table, broadcaster ports.Broadcaster, logger *slog.Logger, m *metrics.Metrics) *EditCoordinator {
	return &EditCoordinator{
		locks:       locks,
		broadcaster: broadcaster,
		logger:      logger.With("component", "edit_coordinator"),
		metrics:     m,
	}
}

// Process applies one event.
func (c *EditCoordinator) Process(ctx context.Context, event domain.Event) error {
	logger := logging.LoggerFromContext(ctx, c.logger)

	switch event.Kind {
	case domain.EventJoin:
		c.broadcaster.Broadcast(event.PictureID, domain.JoinedNotification(event.PictureID, event.User), uuid.Nil)
	case domain.EventEnterEdit:
		c.enterEdit(logger, event)
	case domain.EventEditAction:
		c.editAction(logger, event)
	case domain.EventExitEdit:
		c.exitEdit(event)
	case domain.EventLeave:
		c.leave(event)
	default:
		return fmt.Errorf("%w: unknown event kind %q", apperrors.ErrProcessingFailure, event.Kind)
	}
	return nil
}

// ReportFailure notifies the originating session only.
func (c *EditCoordinator) ReportFailure(event domain.Event, err error) {
	message := "failed to process message"
	if errors.Is(err, apperrors.ErrInvalidMessage) {
		message = err.Error()
	}
	c.broadcaster.SendTo(event.PictureID, event.SessionID,
		domain.ErrorNotification(event.PictureID, event.User, message))
}

func (c *EditCoordinator) enterEdit(logger *slog.Logger, event domain.Event) {
	granted := c.locks.Acquire(event.PictureID, editlock.Holder{
		UserID:    event.UserID,
		SessionID: event.SessionID,
		User:      event.User,
	})
	if !granted {
		logger.Debug("enter edit ignored, picture already locked")
		return
	}
	c.metrics.LockedPictures.Inc()
	c.broadcaster.Broadcast(event.PictureID, domain.EnterEditNotification(event.PictureID, event.User), uuid.Nil)
}

func (c *EditCoordinator) editAction(logger *slog.Logger, event domain.Event) {
	if !c.locks.IsHeldBy(event.PictureID, event.UserID) {
		logger.Debug("edit action dropped, sender does not hold the lock",
			"edit_action", event.EditAction,
		)
		return
	}
	n := domain.EditActionNotification(event.PictureID, event.User, event.EditAction, event.Payload)
	c.broadcaster.Broadcast(event.PictureID, n, event.SessionID)
}

func (c *EditCoordinator) exitEdit(event domain.Event) {
	holder, released := c.locks.Release(event.PictureID, event.UserID)
	if !released {
		return
	}
	c.metrics.LockedPictures.Dec()
	c.broadcaster.Broadcast(event.PictureID, domain.ExitEditNotification(event.PictureID, holder.User), uuid.Nil)
}

// leave runs after the registry already removed the session, so these
// broadcasts reach only the remaining sessions.
func (c *EditCoordinator) leave(event domain.Event) {
	if holder, released := c.locks.ReleaseSession(event.PictureID, event.SessionID); released {
		c.metrics.LockedPictures.Dec()
		c.broadcaster.Broadcast(event.PictureID, domain.ExitEditNotification(event.PictureID, holder.User), uuid.Nil)
	}
	c.broadcaster.Broadcast(event.PictureID, domain.LeftNotification(event.PictureID, event.User), uuid.Nil)
}
