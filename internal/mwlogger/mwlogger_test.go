package mwlogger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func TestNewMWLogger_KeepsRequestID(t *testing.T) {
	var seen bool
	h := NewMWLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, seen = r.Context().Value(loggerWithRequestID{}).(zlog.Zerolog)
		w.WriteHeader(204)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.True(t, seen)
	require.Equal(t, 204, w.Code)
	require.Equal(t, "req-1", w.Header().Get("X-Request-Id"))
}

func TestNewMWLogger_GeneratesRequestID(t *testing.T) {
	h := NewMWLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestWithComponent(t *testing.T) {
	ctx := WithComponent(context.Background(), "loader")
	_, ok := ctx.Value(loggerWithRequestID{}).(zlog.Zerolog)
	require.True(t, ok)
}
