package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/incidentnow/agentproxy/internal/cli/config"
	"github.com/incidentnow/agentproxy/internal/cli/envdoc"
	"github.com/incidentnow/agentproxy/internal/cli/registration"
	"github.com/incidentnow/agentproxy/internal/logger"
	"github.com/incidentnow/agentproxy/internal/telemetry"
	"github.com/incidentnow/agentproxy/internal/version"
	"github.com/incidentnow/agentproxy/pkg/env"
	"github.com/incidentnow/agentproxy/pkg/foundry"
)

// clientFactory builds the project client once configuration is valid.
type clientFactory func(endpoint string) (registration.AgentClient, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr, newProjectClient)
	stop()
	os.Exit(code)
}

func newProjectClient(endpoint string) (registration.AgentClient, error) {
	tokens, err := foundry.NewDefaultTokenProvider()
	if err != nil {
		return nil, err
	}
	return foundry.NewProjectClient(endpoint, tokens, &foundry.ProjectClientOptions{
		ClientOptions: azcore.ClientOptions{Transport: telemetry.HTTPClient(0)},
	})
}

// execute runs the command and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer, newClient clientFactory) int {
	cmd := newRootCmd(newClient)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "\n%s\n", color.RedString("❌ Error: %v", err))
		return 1
	}
	return 0
}

func newRootCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "create-writer-agent",
		Short:         "Create the writer agent in an Azure AI Foundry project",
		Long:          "Create an agent definition in the Azure AI Foundry project named by " + env.AzureAIProjectEndpoint.Name() + ".",
		Version:       version.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), newClient)
		},
	}

	if err := config.BindFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	cmd.AddCommand(envdoc.NewEnvCmd(string(env.ComponentRegistration)))

	return cmd
}

func run(ctx context.Context, out io.Writer, newClient clientFactory) error {
	cfg, err := config.Get()
	if err != nil {
		return err
	}

	level := env.LogLevel.Get()
	if cfg.Verbose {
		level = "debug"
	}
	log, zapLogger := logger.Setup(level, env.LogEnvironment.Get() == "development")
	defer func() {
		_ = zapLogger.Sync()
	}()

	if _, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.V(1).Info(fmt.Sprintf(format, args...))
	})); err != nil {
		log.V(1).Info("Failed to set GOMAXPROCS", "error", err)
	}

	fsys := afero.NewOsFs()
	instructions, err := registration.LoadInstructions(fsys, cfg.InstructionsFile)
	if err != nil {
		return err
	}
	opts := registration.Options{
		Name:         cfg.AgentName,
		Model:        cfg.Model,
		Instructions: instructions,
		SkipExisting: cfg.SkipExisting,
	}
	if cfg.DefinitionFile != "" {
		def, err := registration.LoadDefinition(fsys, cfg.DefinitionFile)
		if err != nil {
			return err
		}
		if err := def.Apply(&opts); err != nil {
			return err
		}
	}

	client, err := newClient(cfg.ProjectEndpoint)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	ctx = logr.NewContext(ctx, log.WithValues("endpoint", cfg.ProjectEndpoint))

	_, err = registration.Run(ctx, out, client, opts)
	return err
}
