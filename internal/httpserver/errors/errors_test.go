package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/incidentnow/agentproxy/pkg/foundry"
)

func agentError(kind foundry.ErrorKind, cause error) error {
	return &foundry.Error{Kind: kind, Op: "create response", Err: cause}
}

func TestPolicyFromAgentError(t *testing.T) {
	timeout := agentError(foundry.KindTransport, fmt.Errorf("post: %w", contextDeadline{}))

	tests := []struct {
		name       string
		policy     Policy
		err        error
		wantCode   int
		wantDetail string
		wantKind   foundry.ErrorKind
	}{
		{
			name:       "authentication",
			policy:     Policy{ExposeDetail: true},
			err:        agentError(foundry.KindAuthentication, stderrors.New("no credential")),
			wantCode:   http.StatusBadGateway,
			wantDetail: "no credential",
			wantKind:   foundry.KindAuthentication,
		},
		{
			name:       "transport timeout",
			policy:     Policy{ExposeDetail: true},
			err:        timeout,
			wantCode:   http.StatusGatewayTimeout,
			wantDetail: "post: timeout",
			wantKind:   foundry.KindTransport,
		},
		{
			name:       "transport refused",
			policy:     Policy{ExposeDetail: true},
			err:        agentError(foundry.KindTransport, stderrors.New("connection refused")),
			wantCode:   http.StatusBadGateway,
			wantDetail: "connection refused",
			wantKind:   foundry.KindTransport,
		},
		{
			name:       "upstream",
			policy:     Policy{ExposeDetail: true},
			err:        agentError(foundry.KindUpstream, stderrors.New("500 Internal Server Error")),
			wantCode:   http.StatusBadGateway,
			wantDetail: "500 Internal Server Error",
			wantKind:   foundry.KindUpstream,
		},
		{
			name:       "malformed",
			policy:     Policy{},
			err:        agentError(foundry.KindMalformedResponse, stderrors.New("unexpected end of JSON input")),
			wantCode:   http.StatusBadGateway,
			wantDetail: "Agent service returned an unreadable response",
			wantKind:   foundry.KindMalformedResponse,
		},
		{
			name:       "unclassified",
			policy:     Policy{ExposeDetail: true},
			err:        stderrors.New("boom"),
			wantCode:   http.StatusInternalServerError,
			wantDetail: "boom",
			wantKind:   foundry.KindInternal,
		},
		{
			name:       "uniform keeps raw detail",
			policy:     Policy{ExposeDetail: true, UniformStatus: true},
			err:        timeout,
			wantCode:   http.StatusInternalServerError,
			wantDetail: "post: timeout",
			wantKind:   foundry.KindTransport,
		},
		{
			name:       "uniform and hidden detail",
			policy:     Policy{UniformStatus: true},
			err:        agentError(foundry.KindAuthentication, stderrors.New("secret tenant id")),
			wantCode:   http.StatusInternalServerError,
			wantDetail: "Failed to authenticate with the agent service",
			wantKind:   foundry.KindAuthentication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := tt.policy.FromAgentError(tt.err)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.ErrorIs(t, apiErr, tt.err)
		})
	}
}

func TestConstructors(t *testing.T) {
	cause := stderrors.New("missing field")

	v := NewValidationError("Invalid request body", cause)
	assert.Equal(t, http.StatusUnprocessableEntity, v.Code)
	assert.Equal(t, "Invalid request body: missing field", v.Error())

	u := NewUnauthorizedError("Invalid subscription key", nil)
	assert.Equal(t, http.StatusUnauthorized, u.Code)
	assert.Equal(t, "Invalid subscription key", u.Error())

	nf := NewNotFoundError("Not found", nil)
	assert.Equal(t, http.StatusNotFound, nf.Code)
	na := NewMethodNotAllowedError("Method Not Allowed", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, na.Code)
	assert.Equal(t, nf.Kind, na.Kind)
	assert.Equal(t, http.StatusInternalServerError, NewInternalServerError("oops", nil).Code)
}

// contextDeadline mimics context.DeadlineExceeded's net.Error shape.
type contextDeadline struct{}

func (contextDeadline) Error() string   { return "timeout" }
func (contextDeadline) Timeout() bool   { return true }
func (contextDeadline) Temporary() bool { return true }

func TestPolicyFromEnv(t *testing.T) {
	t.Setenv("AGENT_PROXY_UNIFORM_ERROR_STATUS", "")
	t.Setenv("AGENT_PROXY_EXPOSE_ERROR_DETAIL", "")
	assert.Equal(t, Policy{ExposeDetail: true, UniformStatus: true}, PolicyFromEnv())

	t.Setenv("AGENT_PROXY_UNIFORM_ERROR_STATUS", "false")
	t.Setenv("AGENT_PROXY_EXPOSE_ERROR_DETAIL", "false")
	assert.Equal(t, Policy{}, PolicyFromEnv())
}
