package foundry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func jsonSyntaxError() error {
	var v map[string]any
	return json.Unmarshal([]byte("{"), &v)
}

func jsonTypeError() error {
	var v struct {
		ID string `json:"id"`
	}
	return json.Unmarshal([]byte(`{"id":1}`), &v)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantKind    ErrorKind
		wantTimeout bool
	}{
		{
			name:     "openai unauthorized",
			err:      &openai.Error{StatusCode: http.StatusUnauthorized},
			wantKind: KindAuthentication,
		},
		{
			name:     "azcore forbidden",
			err:      &azcore.ResponseError{StatusCode: http.StatusForbidden},
			wantKind: KindAuthentication,
		},
		{
			name:     "openai server error",
			err:      &openai.Error{StatusCode: http.StatusInternalServerError},
			wantKind: KindUpstream,
		},
		{
			name:     "azcore not found",
			err:      &azcore.ResponseError{StatusCode: http.StatusNotFound},
			wantKind: KindUpstream,
		},
		{
			name:        "deadline",
			err:         fmt.Errorf("post: %w", context.DeadlineExceeded),
			wantKind:    KindTransport,
			wantTimeout: true,
		},
		{
			name:     "canceled",
			err:      context.Canceled,
			wantKind: KindTransport,
		},
		{
			name:        "net timeout",
			err:         &net.OpError{Op: "dial", Err: timeoutErr{}},
			wantKind:    KindTransport,
			wantTimeout: true,
		},
		{
			name:     "connection refused",
			err:      &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			wantKind: KindTransport,
		},
		{
			name:     "syntax error",
			err:      fmt.Errorf("error parsing response json: %w", jsonSyntaxError()),
			wantKind: KindMalformedResponse,
		},
		{
			name:     "type mismatch",
			err:      jsonTypeError(),
			wantKind: KindMalformedResponse,
		},
		{
			name:     "truncated body",
			err:      fmt.Errorf("error parsing response json: %w", io.ErrUnexpectedEOF),
			wantKind: KindMalformedResponse,
		},
		{
			name:     "unrecognised failure",
			err:      errors.New("expected destination type of 'string'"),
			wantKind: KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("create response", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.ErrorIs(t, err, tt.err)

			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "create response", fe.Op)
			assert.Equal(t, tt.wantTimeout, fe.Timeout())
		})
	}
}

func TestErrorTextIsCauseText(t *testing.T) {
	err := classify("create response", &net.OpError{Op: "dial", Err: timeoutErr{}})
	assert.Equal(t, "dial: timeout", err.Error())

	assert.Equal(t, "internal", (&Error{Kind: KindInternal}).Error())
}

func TestClassifyKeepsClassifiedErrors(t *testing.T) {
	orig := &Error{Kind: KindAuthentication, Op: "acquire token", Err: errors.New("no credential")}
	err := classify("create response", fmt.Errorf("wrapped: %w", orig))

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Same(t, orig, fe)
	assert.Nil(t, classify("noop", nil))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(classify("get agent", &azcore.ResponseError{StatusCode: http.StatusNotFound})))
	assert.False(t, IsNotFound(classify("get agent", &azcore.ResponseError{StatusCode: http.StatusConflict})))
	assert.False(t, IsNotFound(errors.New("not found")))
}
