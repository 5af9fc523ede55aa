package response

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/ippiapp/ippi-server/internal/errors"
	"github.com/ippiapp/ippi-server/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"message": "test"}, discardLogger())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"message": "test"}, body["data"])
	assert.NotContains(t, body, "error")
}

func TestJSON_ErrorStatusIsNotSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNotFound, map[string]string{"message": "test"}, discardLogger())

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestCreatedAndNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	Created(w, map[string]int{"id": 1}, discardLogger())
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	NoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name     string
		write    func(http.ResponseWriter)
		status   int
		wantCode string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad", nil) }, http.StatusBadRequest, "VALIDATION"},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "no", nil) }, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "gone", nil) }, http.StatusNotFound, "NOT_FOUND"},
		{"too many", func(w http.ResponseWriter) { TooManyRequests(w, "slow down", nil) }, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "boom", nil) }, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantCode, body["error"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestHandleError(t *testing.T) {
	t.Run("domain error keeps code and details", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := domainerrors.ValidationWithDetails("validation failed", map[string]string{"seconds": "is required"})

		HandleError(w, err, discardLogger())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "VALIDATION", body["error"])
		assert.Equal(t, "validation failed", body["message"])
		assert.Equal(t, map[string]any{"seconds": "is required"}, body["data"])
	})

	t.Run("store error maps to its status", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleError(w, store.ErrNotFound, discardLogger())

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		w := httptest.NewRecorder()

		HandleError(w, errors.New("disk on fire"), discardLogger())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "internal server error", body["message"])
		assert.NotContains(t, body["message"], "disk")
	})
}
