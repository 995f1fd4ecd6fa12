package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-multierror"

	"github.com/incidentnow/agentproxy/internal/httpserver/errors"
	"github.com/incidentnow/agentproxy/internal/metrics"
	"github.com/incidentnow/agentproxy/pkg/foundry"
)

// AgentRunner runs one message against a published agent.
type AgentRunner interface {
	Run(ctx context.Context, ref foundry.AgentRef, message string) (string, error)
}

// RunAgentRequest is the body of POST /run_agent. Fields are pointers so an
// absent field can be told apart from an empty string; empty strings are
// forwarded as given.
type RunAgentRequest struct {
	FoundryResourceName *string `json:"foundry_resource_name"`
	ProjectName         *string `json:"project_name"`
	AgentName           *string `json:"agent_name"`
	Message             *string `json:"message"`
}

// RunAgentResponse is the body of a successful POST /run_agent.
type RunAgentResponse struct {
	Output string `json:"output"`
}

// Validate reports every absent or null field at once.
func (r RunAgentRequest) Validate() error {
	var result *multierror.Error
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"foundry_resource_name", r.FoundryResourceName},
		{"project_name", r.ProjectName},
		{"agent_name", r.AgentName},
		{"message", r.Message},
	} {
		if f.value == nil {
			result = multierror.Append(result, fmt.Errorf("%s is required", f.name))
		}
	}
	if result != nil {
		result.ErrorFormat = joinErrors
	}
	return result.ErrorOrNil()
}

func (r RunAgentRequest) AgentRef() foundry.AgentRef {
	return foundry.AgentRef{
		Resource: deref(r.FoundryResourceName),
		Project:  deref(r.ProjectName),
		Agent:    deref(r.AgentName),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinErrors(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// RunAgentHandler forwards a message to a Foundry agent.
type RunAgentHandler struct {
	*Base
}

func NewRunAgentHandler(base *Base) *RunAgentHandler {
	return &RunAgentHandler{Base: base}
}

// HandleRunAgent handles POST /run_agent requests
func (h *RunAgentHandler) HandleRunAgent(w ErrorResponseWriter, r *http.Request) {
	log := logr.FromContextOrDiscard(r.Context()).WithName("run-agent-handler")

	var req RunAgentRequest
	if err := DecodeJSONBody(r, &req); err != nil {
		w.RespondWithError(errors.NewValidationError("Invalid request body: "+err.Error(), err))
		return
	}
	if err := req.Validate(); err != nil {
		w.RespondWithError(errors.NewValidationError("Invalid request: "+err.Error(), err))
		return
	}

	ref, message := req.AgentRef(), deref(req.Message)
	log = log.WithValues(
		"resource", ref.Resource,
		"project", ref.Project,
		"agent", ref.Agent,
	)
	log.V(1).Info("Running agent", "messageLength", len(message))

	start := time.Now()
	output, err := h.Runner.Run(logr.NewContext(r.Context(), log), ref, message)
	elapsed := time.Since(start)

	if err != nil {
		apiErr := h.ErrorPolicy.FromAgentError(err)
		h.Metrics.ObserveUpstream(string(apiErr.Kind), elapsed)
		log.Info("Agent call failed",
			"kind", apiErr.Kind,
			"status", apiErr.Code,
			"duration", elapsed,
		)
		w.RespondWithError(apiErr)
		return
	}

	h.Metrics.ObserveUpstream(metrics.OutcomeSuccess, elapsed)
	log.Info("Agent call completed", "duration", elapsed, "outputLength", len(output))
	RespondWithJSON(w, http.StatusOK, RunAgentResponse{Output: output})
}
