// Package registration creates agent definitions in a Foundry project.
package registration

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/incidentnow/agentproxy/pkg/foundry"
)

// AgentClient is the part of foundry.ProjectClient registration needs.
type AgentClient interface {
	CreateAgent(ctx context.Context, req foundry.CreateAgentRequest) (*foundry.AgentObject, error)
	GetAgent(ctx context.Context, name string) (*foundry.AgentObject, error)
}

// Options describe the agent to register.
type Options struct {
	Name         string
	Model        string
	Instructions string
	Description  string
	Metadata     map[string]string
	// SkipExisting looks the name up first and leaves an existing agent
	// untouched. Without it every run creates a new agent version.
	SkipExisting bool
}

var (
	banner  = strings.Repeat("=", 60)
	success = color.New(color.FgGreen).SprintFunc()
	notice  = color.New(color.FgYellow).SprintFunc()
	heading = color.New(color.Bold).SprintFunc()
)

// LoadInstructions returns the content of path, or the built-in writer
// instructions when path is empty.
func LoadInstructions(fsys afero.Fs, path string) (string, error) {
	if path == "" {
		return WriterInstructions, nil
	}
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", fmt.Errorf("failed to read instructions: %w", err)
	}
	instructions := strings.TrimSpace(string(b))
	if instructions == "" {
		return "", fmt.Errorf("instructions file %s is empty", path)
	}
	return instructions, nil
}

// Run registers the agent and reports progress to out.
func Run(ctx context.Context, out io.Writer, client AgentClient, opts Options) (*foundry.AgentObject, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("registration").WithValues("agent", opts.Name)

	fmt.Fprintln(out, banner)
	fmt.Fprintln(out, heading(fmt.Sprintf("CREATING %s IN AZURE AI FOUNDRY", cases.Upper(language.Und).String(opts.Name))))
	fmt.Fprintln(out, banner)

	if opts.SkipExisting {
		existing, err := client.GetAgent(ctx, opts.Name)
		switch {
		case err == nil:
			log.Info("Agent already exists", "id", existing.ID)
			fmt.Fprintf(out, "\n%s\n", notice(fmt.Sprintf("Agent %s already exists, skipping creation.", opts.Name)))
			printAgent(out, existing)
			return existing, nil
		case !foundry.IsNotFound(err):
			return nil, fmt.Errorf("failed to look up agent %s: %w", opts.Name, err)
		}
	}

	fmt.Fprintf(out, "\nCreating %s...\n", opts.Name)
	log.V(1).Info("Creating agent", "model", opts.Model)

	instructions := opts.Instructions
	req := foundry.CreateAgentRequest{
		Name:     opts.Name,
		Metadata: opts.Metadata,
		Definition: foundry.PromptAgentDefinition{
			Kind:         foundry.AgentKindPrompt,
			Model:        opts.Model,
			Instructions: &instructions,
		},
	}
	if opts.Description != "" {
		req.Description = &opts.Description
	}
	agent, err := client.CreateAgent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent %s: %w", opts.Name, err)
	}
	log.Info("Agent created", "id", agent.ID, "version", agent.Versions.Latest.Version)

	fmt.Fprintln(out, success("✓ Agent created successfully!"))
	printAgent(out, agent)

	fmt.Fprintf(out, "\n%s\n%s\n%s\n", banner, heading("AGENT SETUP COMPLETE"), banner)
	fmt.Fprintln(out, "\nThe agent is now available in Azure AI Foundry.")
	fmt.Fprintln(out, "You can use it from any application by referencing:")
	fmt.Fprintf(out, "  Agent Name: %s\n", agent.Name)

	return agent, nil
}

func printAgent(out io.Writer, agent *foundry.AgentObject) {
	fmt.Fprintf(out, "  Agent ID: %s\n", agent.ID)
	fmt.Fprintf(out, "  Agent Name: %s\n", agent.Name)
}
