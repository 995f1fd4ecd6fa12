// Package foundry talks to Azure AI Foundry: it derives agent application
// endpoints, acquires bearer tokens, runs hosted agents through their
// OpenAI-compatible Responses surface and registers agent definitions in a
// project.
package foundry

import "fmt"

const (
	// APIVersion is pinned on every call as the api-version query parameter.
	APIVersion = "2025-11-15-preview"

	// TokenAudience is the scope requested from the identity provider.
	TokenAudience = "https://ai.azure.com/.default"

	hostTemplate            = "https://%s.services.ai.azure.com"
	applicationPathTemplate = "/api/projects/%s/applications/%s/protocols/openai"
)

// AgentRef identifies a published agent application.
type AgentRef struct {
	Resource string
	Project  string
	Agent    string
}

// ApplicationPath returns the path of the agent's OpenAI protocol surface.
// Values are substituted verbatim.
func ApplicationPath(ref AgentRef) string {
	return fmt.Sprintf(applicationPathTemplate, ref.Project, ref.Agent)
}

// ApplicationBaseURL returns the base address the OpenAI client is bound to:
// https://{resource}.services.ai.azure.com/api/projects/{project}/applications/{agent}/protocols/openai
func ApplicationBaseURL(ref AgentRef) string {
	return fmt.Sprintf(hostTemplate, ref.Resource) + ApplicationPath(ref)
}
