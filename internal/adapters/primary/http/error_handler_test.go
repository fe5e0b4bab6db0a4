package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lorrc/picture-collab/internal/core/errors"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthenticated", fmt.Errorf("%w: expired", apperrors.ErrUnauthenticated), stdhttp.StatusUnauthorized, "UNAUTHENTICATED"},
		{"forbidden", fmt.Errorf("%w: missing picture:edit", apperrors.ErrForbidden), stdhttp.StatusForbidden, "FORBIDDEN"},
		{"picture not found", apperrors.ErrPictureNotFound, stdhttp.StatusNotFound, "PICTURE_NOT_FOUND"},
		{"space not found", apperrors.ErrSpaceNotFound, stdhttp.StatusNotFound, "SPACE_NOT_FOUND"},
		{"generic not found", apperrors.ErrUserNotFound, stdhttp.StatusNotFound, "NOT_FOUND"},
		{"bad request", apperrors.ErrBadRequest, stdhttp.StatusBadRequest, "BAD_REQUEST"},
		{"rate limited", apperrors.ErrRateLimited, stdhttp.StatusTooManyRequests, "RATE_LIMITED"},
		{"overloaded", apperrors.ErrOverloaded, stdhttp.StatusServiceUnavailable, "UNAVAILABLE"},
		{"closed", apperrors.ErrPipelineClosed, stdhttp.StatusServiceUnavailable, "UNAVAILABLE"},
		{"unknown", fmt.Errorf("boom"), stdhttp.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapDomainError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestErrorHandler_PrefersAppError(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(stdhttp.MethodGet, "/api/v1/pictures/edit/ws", nil)
	h.Handle(rec, req, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "resourceId is required"))

	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "resourceId is required", body.Error)
	assert.Equal(t, "BAD_REQUEST", body.Code)
}

func TestErrorHandler_HidesInternalDetails(t *testing.T) {
	h := NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(stdhttp.MethodGet, "/", nil)
	h.Handle(rec, req, fmt.Errorf("pq: connection refused at 10.0.0.3"))

	require.Equal(t, stdhttp.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}
