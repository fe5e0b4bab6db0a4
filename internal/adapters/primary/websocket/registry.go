package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/lorrc/picture-collab/internal/core/domain"
	"github.com/lorrc/picture-collab/internal/infrastructure/metrics"
)

const emptyPollInterval = 10 * time.Millisecond

// Registry is the process-wide table of open sessions, grouped by picture.
// A session appears in exactly one group and empty groups are removed.
type Registry struct {
	// groups maps picture IDs to their sessions
	groups map[int64]map[uuid.UUID]*Session

	// mu protects groups
	mu sync.RWMutex

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *slog.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		groups:  make(map[int64]map[uuid.UUID]*Session),
		logger:  logger.With("component", "session_registry"),
		metrics: m,
	}
}

// Register adds the session to its picture's group, then emits a join event.
func (r *Registry) Register(s *Session) error {
	pictureID := s.PictureID()

	r.mu.Lock()
	group, ok := r.groups[pictureID]
	if !ok {
		group = make(map[uuid.UUID]*Session)
		r.groups[pictureID] = group
	}
	group[s.ID] = s
	groupSize, pictures := len(group), len(r.groups)
	r.mu.Unlock()

	r.metrics.ActiveSessions.Inc()
	r.metrics.ActivePictures.Set(float64(pictures))

	r.logger.Info("session registered",
		"session_id", s.ID.String(),
		"user_id", s.UserID(),
		"picture_id", pictureID,
		"group_size", groupSize,
	)

	return s.publishLifecycle(domain.EventJoin)
}

// Unregister removes the session from its group and emits a leave event. The
// removal happens before the event is queued, so the leave broadcasts only
// reach the remaining sessions. The event is queued before any other work so
// the lock release follows the removal as closely as possible. It returns
// false if the session was not registered.
func (r *Registry) Unregister(s *Session) bool {
	pictureID := s.PictureID()

	r.mu.Lock()
	group, ok := r.groups[pictureID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if _, exists := group[s.ID]; !exists {
		r.mu.Unlock()
		return false
	}
	delete(group, s.ID)
	if len(group) == 0 {
		delete(r.groups, pictureID)
	}
	pictures := len(r.groups)
	r.mu.Unlock()

	publishErr := s.publishLifecycle(domain.EventLeave)

	s.Close()

	r.metrics.ActiveSessions.Dec()
	r.metrics.ActivePictures.Set(float64(pictures))

	r.logger.Info("session unregistered",
		"session_id", s.ID.String(),
		"user_id", s.UserID(),
		"picture_id", pictureID,
	)
	if publishErr != nil {
		r.logger.Warn("leave event not published",
			"session_id", s.ID.String(),
			"picture_id", pictureID,
			"error", publishErr,
		)
	}
	return true
}

// Snapshot returns a point-in-time copy of the sessions editing a picture.
func (r *Registry) Snapshot(pictureID int64) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.groups[pictureID])
}

// Lookup returns one session of a picture's group.
func (r *Registry) Lookup(pictureID int64, sessionID uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.groups[pictureID][sessionID]
	return s, ok
}

// Count returns the total number of open sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.SumBy(lo.Values(r.groups), func(group map[uuid.UUID]*Session) int {
		return len(group)
	})
}

// GroupCount returns the number of pictures with at least one open session.
func (r *Registry) GroupCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}

// SessionsIn returns the number of sessions editing a picture.
func (r *Registry) SessionsIn(pictureID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[pictureID])
}

// CloseAll closes every session. Their read pumps unregister them as the
// connections go down.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	sessions := lo.FlatMap(lo.Values(r.groups), func(group map[uuid.UUID]*Session, _ int) []*Session {
		return lo.Values(group)
	})
	r.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
	r.logger.Info("closed all sessions", "count", len(sessions))
}

// WaitEmpty blocks until every session has unregistered or ctx is done.
func (r *Registry) WaitEmpty(ctx context.Context) error {
	ticker := time.NewTicker(emptyPollInterval)
	defer ticker.Stop()

	for r.Count() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%d sessions still open: %w", r.Count(), ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
