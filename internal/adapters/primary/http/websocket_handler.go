package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	mw "github.com/lorrc/picture-collab/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/picture-collab/internal/adapters/primary/websocket"
	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
	"github.com/lorrc/picture-collab/internal/core/ports"
	"github.com/lorrc/picture-collab/internal/infrastructure/metrics"
)

// Query parameters naming the picture to edit. pictureId is the legacy name.
const (
	ResourceIDParam      = "resourceId"
	LegacyPictureIDParam = "pictureId"
)

// WebSocketHandler admits editing connections and upgrades them to sessions.
type WebSocketHandler struct {
	gatekeeper   ports.Gatekeeper
	registry     *wsAdapter.Registry
	publisher    ports.EventPublisher
	sessionCfg   wsAdapter.Config
	upgrader     websocket.Upgrader
	errorHandler *ErrorHandler
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

// WebSocketConfig holds configuration for the WebSocket handler
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	IsDevelopment   bool
	Session         wsAdapter.Config
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	gatekeeper ports.Gatekeeper,
	registry *wsAdapter.Registry,
	publisher ports.EventPublisher,
	cfg WebSocketConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		gatekeeper:   gatekeeper,
		registry:     registry,
		publisher:    publisher,
		sessionCfg:   cfg.Session,
		errorHandler: NewErrorHandler(logger),
		logger:       logger.With("component", "websocket_handler"),
		metrics:      m,
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(cfg WebSocketConfig) func(r *http.Request) bool {
	allowedOrigins := cfg.AllowedOrigins

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// In development mode, allow all origins (but log a warning)
		if cfg.IsDevelopment {
			if origin != "" {
				h.logger.Warn("allowing websocket connection in development mode",
					"origin", origin,
					"remote_addr", r.RemoteAddr,
				)
			}
			return true
		}

		// No origin header (same-origin request or non-browser client)
		if origin == "" {
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.Warn("failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		originHost := parsedOrigin.Host

		for _, allowed := range allowedOrigins {
			// Support wildcard subdomains like "*.example.com"
			if strings.HasPrefix(allowed, "*.") {
				suffix := allowed[1:]
				if strings.HasSuffix(originHost, suffix) || originHost == allowed[2:] {
					return true
				}
			} else if originHost == allowed {
				return true
			}
		}

		h.logger.Warn("websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
			"allowed_origins", allowedOrigins,
		)
		return false
	}
}

// ServeHTTP admits the connection, upgrades it and starts the session pumps.
// A refused admission is answered with a plain HTTP error before any session exists.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	// 1. Admission
	pictureID, err := pictureIDFromQuery(r.URL.Query())
	if err != nil {
		h.reject(w, r, err)
		return
	}

	sc, err := h.gatekeeper.Admit(r.Context(), ports.AdmissionRequest{
		PictureID:  pictureID,
		Credential: mw.CredentialFromRequest(r),
	})
	if err != nil {
		h.reject(w, r, err)
		return
	}

	// 2. Upgrade the connection
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection",
			"request_id", requestID,
			"user_id", sc.UserID,
			"error", err,
		)
		return
	}

	// 3. Create and register the session
	session := wsAdapter.NewSession(conn, sc, h.registry, h.publisher, h.sessionCfg, h.logger)
	go session.WritePump()

	if err := h.registry.Register(session); err != nil {
		h.logger.Warn("session registration failed",
			"request_id", requestID,
			"session_id", session.ID.String(),
			"error", err,
		)
		h.registry.Unregister(session)
		return
	}

	h.logger.Info("websocket connection established",
		"request_id", requestID,
		"session_id", session.ID.String(),
		"user_id", sc.UserID,
		"picture_id", sc.PictureID,
		"remote_addr", r.RemoteAddr,
	)

	// 4. Read until the connection closes
	go session.ReadPump()
}

func (h *WebSocketHandler) reject(w http.ResponseWriter, r *http.Request, err error) {
	h.metrics.AdmissionsRejected.WithLabelValues(rejectionReason(err)).Inc()
	h.errorHandler.Handle(w, r, err)
}

func pictureIDFromQuery(q url.Values) (int64, error) {
	raw := q.Get(ResourceIDParam)
	if raw == "" {
		raw = q.Get(LegacyPictureIDParam)
	}
	if raw == "" {
		return 0, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "resourceId is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "resourceId must be a positive integer")
	}
	return id, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, apperrors.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperrors.ErrBadRequest):
		return "bad_request"
	default:
		return "error"
	}
}
