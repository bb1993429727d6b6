// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// LogMiddleware logs every request with its status and duration. Server
// errors are logged at warn level.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   status,
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			})
			if status >= http.StatusInternalServerError {
				entry.Warn("HTTP Request")
				return
			}
			entry.Debug("HTTP Request")
		})
	}
}

// LogWebSocketConnect logs an accepted round connection.
func LogWebSocketConnect(logger *logrus.Logger, connID, remoteAddr string, authenticated bool) {
	logger.WithFields(logrus.Fields{
		"conn":          connID,
		"remote":        remoteAddr,
		"authenticated": authenticated,
	}).Info("WebSocket connected")
}

// LogWebSocketDisconnect logs the end of a round connection. A nil err means
// the client closed normally.
func LogWebSocketDisconnect(logger *logrus.Logger, connID, remoteAddr string, err error) {
	fields := logrus.Fields{
		"conn":   connID,
		"remote": remoteAddr,
	}
	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("WebSocket disconnected")
		return
	}
	logger.WithFields(fields).Info("WebSocket disconnected")
}
