package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Hijack lets the live feed upgrade to a websocket through the logger.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	rw.written = true
	return hj.Hijack()
}

// probes are logged at debug level to keep the log readable
var quietPaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// logs HTTP requests and responses with logger module
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap writer to capture status code
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			written:        false,
		}

		logger := GetLoggerFromContext(r.Context())
		quiet := quietPaths[r.URL.Path]

		if !quiet {
			logger.Info("Request received",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery)
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		// Determine log level based on status code
		statusCode := wrapped.statusCode
		logAttrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", statusCode,
			"duration_ms", duration.Milliseconds(),
		}

		switch {
		case statusCode >= 500:
			logger.Error("Request completed with server error", logAttrs...)
		case statusCode >= 400:
			logger.Warn("Request completed with client error", logAttrs...)
		case quiet:
			logger.Debug("Probe served", logAttrs...)
		default:
			logger.Info("Request completed successfully", logAttrs...)
		}
	})
}
