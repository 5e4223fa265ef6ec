// Package mwlogger puts a request-scoped logger into the context of every
// request and of every background review job
package mwlogger

import (
	"context"
	"net/http"
	"time"

	"github.com/wb-go/wbf/helpers"
	"github.com/wb-go/wbf/zlog"
)

type loggerWithRequestID struct{}

// NewMWLogger - обёртка для логирования запросов с присвоением UUID каждому запросу и пробросу логгера в контекст запроса
func NewMWLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Fetching/generating UUID for request
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = helpers.CreateUUID()
		}
		w.Header().Set("X-Request-Id", reqID)

		logger := zlog.Logger.With().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()

		started := time.Now()
		next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		// ResponseWriter не оборачиваем - иначе ломается Hijack для websocket
		logger.Debug().Dur("took", time.Since(started)).Msg("Request served")
	})
}

// WithLogger stores logger in ctx for LoggerFromContext.
func WithLogger(ctx context.Context, logger zlog.Zerolog) context.Context {
	return context.WithValue(ctx, loggerWithRequestID{}, logger)
}

// WithComponent tags the context logger with a component name and a fresh job id.
func WithComponent(ctx context.Context, component string) context.Context {
	logger := LoggerFromContext(ctx).With().
		Str("component", component).
		Str("job_id", helpers.CreateUUID()).
		Logger()
	return WithLogger(ctx, logger)
}

// LoggerFromContext extracts logger from context - used in service-layer
func LoggerFromContext(ctx context.Context) zlog.Zerolog {
	if l, ok := ctx.Value(loggerWithRequestID{}).(zlog.Zerolog); ok {
		return l
	}
	return zlog.Logger
}
