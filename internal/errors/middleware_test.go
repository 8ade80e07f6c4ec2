package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.Use(Middleware())
	e.GET("/test", handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_NoError(t *testing.T) {
	rec := doRequest(t, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMiddleware_StructuredError(t *testing.T) {
	rec := doRequest(t, func(c echo.Context) error {
		return ConflictError("already voted this direction")
	})

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, TypeConflict, resp.Type)
	assert.Equal(t, "already voted this direction", resp.Error)
}

func TestMiddleware_UnauthorizedError(t *testing.T) {
	rec := doRequest(t, func(c echo.Context) error {
		return UnauthorizedError("nope")
	})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddleware_PlainErrorBecomesInternal(t *testing.T) {
	rec := doRequest(t, func(c echo.Context) error {
		return errors.New("boom")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, TypeInternal, resp.Type)
	// Internal details are not leaked to the client.
	assert.Equal(t, "internal server error", resp.Error)
}

func TestMiddleware_EchoHTTPErrorPassesThrough(t *testing.T) {
	rec := doRequest(t, func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestWrapHTTPError(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{http.StatusBadRequest, TypeValidation},
		{http.StatusNotFound, TypeNotFound},
		{http.StatusConflict, TypeConflict},
		{http.StatusForbidden, TypeUnauthorized},
		{http.StatusUnauthorized, TypeUnauthorized},
		{http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		got := WrapHTTPError(echo.NewHTTPError(tt.code, "msg"))
		assert.Equal(t, tt.want, got.Type, "code %d", tt.code)
		assert.Equal(t, "msg", got.Message)
	}
}
