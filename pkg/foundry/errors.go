package foundry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/openai/openai-go/v3"
)

// ErrorKind is the closed set of failure classes a Foundry call can end in.
type ErrorKind string

const (
	KindInvalidRequest    ErrorKind = "invalid_request"
	KindAuthentication    ErrorKind = "authentication"
	KindTransport         ErrorKind = "transport"
	KindUpstream          ErrorKind = "upstream"
	KindMalformedResponse ErrorKind = "malformed_response"
	KindInternal          ErrorKind = "internal"
)

// Error is a classified failure. Error() yields the cause's text unchanged so
// callers can surface it verbatim; Kind and Op are for routing and logs.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether a transport failure was a deadline expiring.
func (e *Error) Timeout() bool {
	if e.Kind != KindTransport {
		return false
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// KindOf returns the kind of a classified error, KindInternal otherwise.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// classify wraps a failed remote call. Errors that are already classified
// pass through; the status of an upstream reply decides between
// authentication and upstream; context and network failures are transport;
// JSON decode failures are a malformed response. Anything else is internal.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}

	if code := StatusCode(err); code != 0 {
		kind := KindUpstream
		if code == http.StatusUnauthorized || code == http.StatusForbidden {
			kind = KindAuthentication
		}
		return &Error{Kind: kind, Op: op, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}

	if isDecodeError(err) {
		return &Error{Kind: KindMalformedResponse, Op: op, Err: err}
	}
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// isDecodeError reports whether err came from decoding a JSON body. A
// json.Decoder reports a truncated value as io.ErrUnexpectedEOF.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
