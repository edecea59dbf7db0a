package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/flemzord/tgrelay/internal/security"
)

// accessLog emits one line per request. Paths are redacted because forward
// mode accepts /bot<token>/ segments.
func accessLog(logger *slog.Logger, redactor *security.Redactor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request",
				"method", r.Method,
				"path", redactor.Redact(r.URL.Path),
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
				"remote", r.RemoteAddr,
			)
		})
	}
}

// recoverer turns a handler panic into a JSON 500 instead of a dropped
// connection.
func (rs *responder) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity, as net/http does
				panic(rvr)
			}
			rs.logger.Error("handler panic",
				"panic", fmt.Sprint(rvr),
				"path", rs.redactor.Redact(r.URL.Path),
				"stack", string(debug.Stack()),
			)
			rs.serverError(w, fmt.Sprint(rvr))
		}()
		next.ServeHTTP(w, r)
	})
}
