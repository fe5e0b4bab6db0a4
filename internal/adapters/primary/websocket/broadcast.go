package websocket

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lorrc/picture-collab/internal/core/domain"
	"github.com/lorrc/picture-collab/internal/core/ports"
	"github.com/lorrc/picture-collab/internal/infrastructure/metrics"
)

// BroadcastEngine delivers notifications to the sessions of a picture.
type BroadcastEngine struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Ensure BroadcastEngine implements the Broadcaster interface.
var _ ports.Broadcaster = (*BroadcastEngine)(nil)

// NewBroadcastEngine creates a broadcaster over the registry's session groups.
func NewBroadcastEngine(registry *Registry, logger *slog.Logger, m *metrics.Metrics) *BroadcastEngine {
	return &BroadcastEngine{
		registry: registry,
		logger:   logger.With("component", "broadcast_engine"),
		metrics:  m,
	}
}

// Broadcast encodes n once and queues it to every open session of the picture
// except exclude. Closed sessions are skipped and a session whose buffer is
// full is closed; neither affects delivery to the others. It returns the
// number of sessions the notification was queued to.
func (b *BroadcastEngine) Broadcast(pictureID int64, n domain.Notification, exclude uuid.UUID) int {
	sessions := b.registry.Snapshot(pictureID)
	if len(sessions) == 0 {
		return 0
	}

	data, err := json.Marshal(n)
	if err != nil {
		b.logger.Error("failed to encode notification",
			"picture_id", pictureID,
			"type", n.Type,
			"error", err,
		)
		return 0
	}

	delivered := 0
	for _, s := range sessions {
		if s.ID == exclude {
			continue
		}
		if b.deliver(s, data) {
			delivered++
		}
	}

	b.logger.Debug("broadcast notification",
		"picture_id", pictureID,
		"type", n.Type,
		"delivered", delivered,
		"group_size", len(sessions),
	)
	return delivered
}

// SendTo queues n to a single session of the picture.
func (b *BroadcastEngine) SendTo(pictureID int64, sessionID uuid.UUID, n domain.Notification) bool {
	s, ok := b.registry.Lookup(pictureID, sessionID)
	if !ok {
		return false
	}

	data, err := json.Marshal(n)
	if err != nil {
		b.logger.Error("failed to encode notification", "picture_id", pictureID, "error", err)
		return false
	}
	return b.deliver(s, data)
}

func (b *BroadcastEngine) deliver(s *Session, data []byte) bool {
	delivered, full := s.enqueue(data)
	if delivered {
		b.metrics.Deliveries.Inc()
		return true
	}

	b.metrics.DeliveriesDropped.Inc()
	if full {
		// Closing ends the connection; the read pump then unregisters the session.
		b.logger.Warn("session send buffer full, closing",
			"session_id", s.ID.String(),
			"user_id", s.UserID(),
			"picture_id", s.PictureID(),
		)
		s.Close()
	}
	return false
}
