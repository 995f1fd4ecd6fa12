package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/incidentnow/agentproxy/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// loggingMiddleware puts a request-scoped logger in the context, echoes the
// request id and logs completion with status and duration.
func loggingMiddleware(base logr.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(requestIDHeader, requestID)

			route := routeTemplate(r)
			log := base.WithName("http").WithValues(
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			ww := newStatusResponseWriter(w)
			ctx := logr.NewContext(r.Context(), log)
			log.V(1).Info("Request started")
			next.ServeHTTP(ww, r.WithContext(ctx))

			m.ObserveRequest(route, strconv.Itoa(ww.status))
			log.Info("Request completed",
				"status", ww.status,
				"duration", time.Since(start),
			)
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func newStatusResponseWriter(w http.ResponseWriter) *statusResponseWriter {
	return &statusResponseWriter{w, http.StatusOK}
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
