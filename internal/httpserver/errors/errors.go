package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/incidentnow/agentproxy/pkg/env"
	"github.com/incidentnow/agentproxy/pkg/foundry"
)

// APIError is an error with the HTTP status and body it should be answered
// with. Detail is what the caller sees; Err is what gets logged.
type APIError struct {
	Code   int
	Detail string
	Kind   foundry.ErrorKind
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *APIError) Unwrap() error { return e.Err }

func NewValidationError(detail string, err error) *APIError {
	return &APIError{Code: http.StatusUnprocessableEntity, Detail: detail, Kind: foundry.KindInvalidRequest, Err: err}
}

func NewUnauthorizedError(detail string, err error) *APIError {
	return &APIError{Code: http.StatusUnauthorized, Detail: detail, Kind: foundry.KindAuthentication, Err: err}
}

func NewNotFoundError(detail string, err error) *APIError {
	return &APIError{Code: http.StatusNotFound, Detail: detail, Kind: foundry.KindInvalidRequest, Err: err}
}

func NewMethodNotAllowedError(detail string, err error) *APIError {
	return &APIError{Code: http.StatusMethodNotAllowed, Detail: detail, Kind: foundry.KindInvalidRequest, Err: err}
}

func NewInternalServerError(detail string, err error) *APIError {
	return &APIError{Code: http.StatusInternalServerError, Detail: detail, Kind: foundry.KindInternal, Err: err}
}

var genericDetail = map[foundry.ErrorKind]string{
	foundry.KindInvalidRequest:    "Invalid request",
	foundry.KindAuthentication:    "Failed to authenticate with the agent service",
	foundry.KindTransport:         "Agent service could not be reached",
	foundry.KindUpstream:          "Agent service returned an error",
	foundry.KindMalformedResponse: "Agent service returned an unreadable response",
	foundry.KindInternal:          "Internal server error",
}

// Policy decides how failed agent calls are reported to callers.
type Policy struct {
	// ExposeDetail puts the underlying error text in Detail. Otherwise a
	// fixed message per kind is used.
	ExposeDetail bool
	// UniformStatus answers every failure with 500.
	UniformStatus bool
}

// PolicyFromEnv reads the policy from AGENT_PROXY_EXPOSE_ERROR_DETAIL and
// AGENT_PROXY_UNIFORM_ERROR_STATUS. The defaults answer every failure with 500
// and the raw error text.
func PolicyFromEnv() Policy {
	return Policy{
		ExposeDetail:  env.ProxyExposeErrorDetail.Get(),
		UniformStatus: env.ProxyUniformErrorStatus.Get(),
	}
}

// StatusForKind is the status a failure of kind is answered with when the
// policy is not uniform.
func StatusForKind(kind foundry.ErrorKind, timeout bool) int {
	switch kind {
	case foundry.KindInvalidRequest:
		return http.StatusUnprocessableEntity
	case foundry.KindTransport:
		if timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case foundry.KindAuthentication, foundry.KindUpstream, foundry.KindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromAgentError converts an error returned by an agent call.
func (p Policy) FromAgentError(err error) *APIError {
	kind := foundry.KindOf(err)

	var fe *foundry.Error
	timeout := stderrors.As(err, &fe) && fe.Timeout()

	code := StatusForKind(kind, timeout)
	if p.UniformStatus {
		code = http.StatusInternalServerError
	}

	detail := genericDetail[kind]
	if p.ExposeDetail {
		detail = err.Error()
	}

	return &APIError{Code: code, Detail: detail, Kind: kind, Err: err}
}
