// internal/middleware/logging.go
package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestLogger logs every HTTP request with its method, path, peer address
// and handling duration. For the websocket endpoint the duration spans the
// whole session, since the handler only returns once the socket closes.
func RequestLogger(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start),
			}).Info("http request")
		})
	}
}

// WSConnected marks the start of an accepted websocket session.
func WSConnected(logger *logrus.Logger, r *http.Request) {
	logger.WithFields(logrus.Fields{
		"remote": r.RemoteAddr,
		"path":   r.URL.Path,
	}).Info("websocket session opened")
}

// WSClosed marks the end of a websocket session with the disconnect reason
// reported by the read loop.
func WSClosed(logger *logrus.Logger, r *http.Request, reason string) {
	logger.WithFields(logrus.Fields{
		"remote": r.RemoteAddr,
		"path":   r.URL.Path,
		"reason": reason,
	}).Info("websocket session closed")
}
