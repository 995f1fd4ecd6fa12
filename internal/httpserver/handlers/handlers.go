package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/incidentnow/agentproxy/internal/httpserver/errors"
	"github.com/incidentnow/agentproxy/internal/metrics"
)

// maxBodyBytes caps a decoded request body.
const maxBodyBytes = 1 << 20

// Base holds what every handler shares.
type Base struct {
	Runner      AgentRunner
	Metrics     *metrics.Metrics
	ErrorPolicy errors.Policy
}

// Handlers bundles the proxy's handlers.
type Handlers struct {
	Health   *HealthHandler
	RunAgent *RunAgentHandler
}

func NewHandlers(base *Base) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(),
		RunAgent: NewRunAgentHandler(base),
	}
}

// ErrorResponseWriter is a ResponseWriter that knows how to answer with an
// error body.
type ErrorResponseWriter interface {
	http.ResponseWriter
	RespondWithError(err error)
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind,omitempty"`
}

type errorResponseWriter struct {
	http.ResponseWriter
	log logr.Logger
}

// NewErrorResponseWriter wraps w. Errors are logged to log before they are
// written.
func NewErrorResponseWriter(w http.ResponseWriter, log logr.Logger) ErrorResponseWriter {
	return &errorResponseWriter{ResponseWriter: w, log: log}
}

func (w *errorResponseWriter) RespondWithError(err error) {
	var apiErr *errors.APIError
	if !stderrors.As(err, &apiErr) {
		apiErr = errors.NewInternalServerError("Internal server error", err)
	}

	if apiErr.Code >= http.StatusInternalServerError {
		w.log.Error(err, "Request failed", "status", apiErr.Code, "kind", apiErr.Kind)
	} else {
		w.log.V(1).Info("Request rejected", "status", apiErr.Code, "kind", apiErr.Kind, "error", err.Error())
	}

	RespondWithJSON(w, apiErr.Code, ErrorResponse{
		Detail: apiErr.Detail,
		Kind:   string(apiErr.Kind),
	})
}

// RespondWithJSON writes payload as JSON with the given status code.
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Internal server error","kind":"internal"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// DecodeJSONBody decodes the request body into target.
func DecodeJSONBody(r *http.Request, target any) error {
	if r.Body == nil {
		return fmt.Errorf("request body is empty")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if stderrors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return err
	}
	return nil
}
