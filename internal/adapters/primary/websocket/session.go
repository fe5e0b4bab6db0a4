package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/lorrc/picture-collab/internal/core/domain"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/ports"
)

// Config holds per-session transport settings.
type Config struct {
	// Time allowed to write a message to the peer.
	WriteWait time.Duration
	// Time allowed to read the next pong message from the peer.
	PongWait time.Duration
	// Send pings to peer with this period. Must be less than PongWait.
	PingInterval time.Duration
	// Maximum message size allowed from peer.
	MaxMessageSize int64
	// Outbound messages buffered before the session counts as a slow consumer.
	SendBuffer int
	// How long a frame may wait for room in the ingress pipeline.
	PublishTimeout time.Duration
	// Inbound frame rate limit.
	FrameRPS   float64
	FrameBurst int
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   54 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
		PublishTimeout: 5 * time.Second,
		FrameRPS:       50,
		FrameBurst:     100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = d.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = d.PongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = (c.PongWait * 9) / 10
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = d.SendBuffer
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = d.PublishTimeout
	}
	return c
}

// Session is one live client connection, bound to exactly one user and one picture.
type Session struct {
	ID uuid.UUID

	conn      *websocket.Conn
	sc        domain.SessionContext
	registry  *Registry
	publisher ports.EventPublisher
	limiter   *rate.Limiter
	cfg       Config
	logger    *slog.Logger

	// send is closed under mu, so enqueue never races a close.
	send   chan []byte
	mu     sync.RWMutex
	closed bool
}

// NewSession wraps an upgraded connection.
func NewSession(
	conn *websocket.Conn,
	sc domain.SessionContext,
	registry *Registry,
	publisher ports.EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *Session {
	id := uuid.New()
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.FrameRPS > 0 {
		limit = rate.Limit(cfg.FrameRPS)
	}
	return &Session{
		ID:        id,
		conn:      conn,
		sc:        sc,
		registry:  registry,
		publisher: publisher,
		limiter:   rate.NewLimiter(limit, max(cfg.FrameBurst, 1)),
		cfg:       cfg,
		logger: logger.With(
			"session_id", id.String(),
			"user_id", sc.UserID,
			"picture_id", sc.PictureID,
		),
		send: make(chan []byte, cfg.SendBuffer),
	}
}

// Context returns the immutable admission context.
func (s *Session) Context() domain.SessionContext {
	return s.sc
}

// UserID returns the authenticated user of the session.
func (s *Session) UserID() int64 {
	return s.sc.UserID
}

// PictureID returns the picture the session edits.
func (s *Session) PictureID() int64 {
	return s.sc.PictureID
}

// IsOpen reports whether the session still accepts outbound messages.
func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed
}

// Close stops outbound delivery. The write pump then sends a close frame and
// drops the connection, which ends the read pump. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// enqueue queues an encoded message without blocking. It reports false if the
// session is closed or its buffer is full.
func (s *Session) enqueue(data []byte) (delivered, full bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, false
	}
	select {
	case s.send <- data:
		return true, false
	default:
		return false, true
	}
}

// notify sends a notification to this session only.
func (s *Session) notify(n domain.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("failed to encode notification", "error", err)
		return
	}
	if _, full := s.enqueue(data); full {
		s.logger.Warn("session send buffer full, closing")
		s.Close()
	}
}

func (s *Session) notifyError(message string) {
	s.notify(domain.ErrorNotification(s.sc.PictureID, s.sc.User, message))
}

// publishLifecycle hands a join or leave event to the pipeline. Lifecycle
// events wait for room rather than time out, so a close is never lost.
func (s *Session) publishLifecycle(kind domain.EventKind) error {
	return s.publisher.Publish(context.Background(), domain.NewEvent(kind, s.sc, s.ID))
}

// ReadPump pumps frames from the websocket connection to the ingress pipeline.
// It runs until the connection fails or closes, then unregisters the session.
func (s *Session) ReadPump() {
	defer func() {
		s.registry.Unregister(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(s.cfg.MaxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait)); err != nil {
		s.logger.Error("failed to set read deadline", "error", err)
		return
	}

	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait)); err != nil {
			s.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		if !s.handleFrame(message) {
			return
		}
	}
}

// handleFrame turns one inbound frame into an event. It returns false when the
// session should stop reading.
func (s *Session) handleFrame(message []byte) bool {
	if !s.limiter.Allow() {
		s.notifyError("rate limit exceeded, slow down")
		return true
	}

	var frame domain.Frame
	if err := json.Unmarshal(message, &frame); err != nil {
		s.logger.Debug("failed to unmarshal client frame", "error", err)
		s.notifyError("invalid message format")
		return true
	}

	kind, err := frame.EventKind()
	if err != nil {
		s.logger.Debug("rejected client frame", "type", frame.Type, "error", err)
		s.notifyError(err.Error())
		return true
	}

	event := domain.NewEvent(kind, s.sc, s.ID)
	event.EditAction = frame.EditAction
	event.Payload = frame.Payload

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PublishTimeout)
	defer cancel()

	switch err := s.publisher.Publish(ctx, event); {
	case err == nil:
		return true
	case errors.Is(err, apperrors.ErrOverloaded):
		s.logger.Warn("ingress pipeline saturated, frame rejected", "type", frame.Type)
		s.notifyError("server is busy, please retry")
		return true
	case errors.Is(err, apperrors.ErrPipelineClosed):
		return false
	default:
		s.logger.Error("failed to publish frame", "error", err)
		s.notifyError("failed to process message")
		return true
	}
}

// WritePump pumps queued messages to the websocket connection and keeps it alive with pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait)); err != nil {
				s.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The session was closed. Send close message.
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					s.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait)); err != nil {
				s.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}
