package foundry

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
)

const (
	moduleName    = "agentproxy/foundry"
	moduleVersion = "v0.1.0"
)

// AgentKind is the definition kind of a project agent.
type AgentKind string

const AgentKindPrompt AgentKind = "prompt"

// PromptAgentDefinition is a model plus instructions.
type PromptAgentDefinition struct {
	Kind         AgentKind `json:"kind"`
	Model        string    `json:"model"`
	Instructions *string   `json:"instructions,omitempty"`
}

// CreateAgentRequest is the body of POST {endpoint}/agents.
type CreateAgentRequest struct {
	Name        string                `json:"name"`
	Description *string               `json:"description,omitempty"`
	Metadata    map[string]string     `json:"metadata,omitempty"`
	Definition  PromptAgentDefinition `json:"definition"`
}

type AgentVersionObject struct {
	Object    string `json:"object"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	CreatedAt int64  `json:"created_at"`
}

// AgentObject is a project agent as returned by the agents API.
type AgentObject struct {
	Object   string `json:"object"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	Versions struct {
		Latest AgentVersionObject `json:"latest"`
	} `json:"versions"`
}

// ProjectClientOptions configures a ProjectClient. Retries default to off so
// a create is attempted once.
type ProjectClientOptions struct {
	azcore.ClientOptions
}

// ProjectClient manages agent definitions in one Foundry project.
type ProjectClient struct {
	endpoint string
	pl       runtime.Pipeline
}

// NewProjectClient binds a client to a project endpoint such as
// https://<resource>.services.ai.azure.com/api/projects/<project>.
func NewProjectClient(endpoint string, tokens TokenProvider, options *ProjectClientOptions) (*ProjectClient, error) {
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Op: "parse endpoint", Err: err}
	}
	if options == nil {
		options = &ProjectClientOptions{}
	}
	clientOpts := options.ClientOptions
	if clientOpts.Retry.MaxRetries == 0 {
		clientOpts.Retry.MaxRetries = -1
	}

	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{
		PerRetry: []policy.Policy{&bearerTokenPolicy{tokens: tokens}},
	}, &clientOpts)

	return &ProjectClient{endpoint: endpoint, pl: pl}, nil
}

// CreateAgent registers a new agent. The service decides what happens when
// the name is already taken.
func (c *ProjectClient) CreateAgent(ctx context.Context, body CreateAgentRequest) (*AgentObject, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "agents")
	if err != nil {
		return nil, err
	}
	if err := runtime.MarshalAsJSON(req, body); err != nil {
		return nil, &Error{Kind: KindInternal, Op: "create agent", Err: err}
	}
	return c.doAgent(req, "create agent", http.StatusOK, http.StatusCreated)
}

// GetAgent fetches an agent by name. A missing agent is an *Error for which
// IsNotFound reports true.
func (c *ProjectClient) GetAgent(ctx context.Context, name string) (*AgentObject, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "agents", url.PathEscape(name))
	if err != nil {
		return nil, err
	}
	return c.doAgent(req, "get agent", http.StatusOK)
}

func (c *ProjectClient) newRequest(ctx context.Context, method string, paths ...string) (*policy.Request, error) {
	req, err := runtime.NewRequest(ctx, method, runtime.JoinPaths(c.endpoint, paths...))
	if err != nil {
		return nil, &Error{Kind: KindInternal, Op: "build request", Err: err}
	}
	q := req.Raw().URL.Query()
	q.Set("api-version", APIVersion)
	req.Raw().URL.RawQuery = q.Encode()
	req.Raw().Header["Accept"] = []string{"application/json"}
	return req, nil
}

func (c *ProjectClient) doAgent(req *policy.Request, op string, okCodes ...int) (*AgentObject, error) {
	resp, err := c.pl.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	if !runtime.HasStatusCode(resp, okCodes...) {
		return nil, classify(op, runtime.NewResponseError(resp))
	}
	var agent AgentObject
	if err := runtime.UnmarshalAsJSON(resp, &agent); err != nil {
		return nil, &Error{Kind: KindMalformedResponse, Op: op, Err: err}
	}
	return &agent, nil
}

// bearerTokenPolicy sets Authorization from a TokenProvider on every try.
type bearerTokenPolicy struct {
	tokens TokenProvider
}

func (p *bearerTokenPolicy) Do(req *policy.Request) (*http.Response, error) {
	token, err := acquireToken(req.Raw().Context(), p.tokens)
	if err != nil {
		return nil, err
	}
	req.Raw().Header.Set("Authorization", "Bearer "+token)
	return req.Next()
}
