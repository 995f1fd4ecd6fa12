package envdoc

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/incidentnow/agentproxy/pkg/env"
)

// NewEnvCmd returns a cobra command that generates environment variable
// documentation. defaultComponent preselects the --component filter.
func NewEnvCmd(defaultComponent string) *cobra.Command {
	var format, component string

	cmd := &cobra.Command{
		Use:    "env",
		Hidden: true,
		Short:  "List all agent proxy environment variables",
		Long:   "Generate documentation for the environment variables in markdown or JSON format.",
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "markdown", "md":
				fmt.Fprint(cmd.OutOrStdout(), env.ExportMarkdown(component))
			case "json":
				fmt.Fprint(cmd.OutOrStdout(), env.ExportJSON(component))
			default:
				return fmt.Errorf("unknown format %q: use markdown or json", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "markdown", "Output format: markdown, json")
	cmd.Flags().StringVar(&component, "component", defaultComponent, "Filter by component: proxy, registration, shared, testing, all")

	return cmd
}
