package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/incidentnow/agentproxy/internal/cli/envdoc"
	"github.com/incidentnow/agentproxy/internal/httpserver"
	apierrors "github.com/incidentnow/agentproxy/internal/httpserver/errors"
	"github.com/incidentnow/agentproxy/internal/logger"
	"github.com/incidentnow/agentproxy/internal/metrics"
	"github.com/incidentnow/agentproxy/internal/telemetry"
	"github.com/incidentnow/agentproxy/internal/version"
	"github.com/incidentnow/agentproxy/pkg/env"
	"github.com/incidentnow/agentproxy/pkg/foundry"
)

const serviceName = "agent-proxy"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr, logLevel string

	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Forward messages to Azure AI Foundry agents over HTTP",
		Version:      version.Version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), addr, logLevel)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", env.ProxyAddr.Get(), "Address to listen on (env "+env.ProxyAddr.Name()+")")
	cmd.Flags().StringVar(&logLevel, "log-level", env.LogLevel.Get(), "Log level: debug, info, warn, error (env "+env.LogLevel.Name()+")")
	cmd.AddCommand(envdoc.NewEnvCmd(string(env.ComponentProxy)))

	return cmd
}

func run(ctx context.Context, addr, logLevel string) error {
	log, zapLogger := logger.Setup(logLevel, env.LogEnvironment.Get() == "development")
	defer func() {
		_ = zapLogger.Sync()
	}()
	log = log.WithName(serviceName)

	undoMaxprocs, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		log.Info(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		log.Error(err, "Failed to set GOMAXPROCS")
	}
	defer undoMaxprocs()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, serviceName, version.Version)
	if err != nil {
		log.Error(err, "Failed to initialize telemetry")
		return err
	}
	defer shutdownTelemetry()

	tokens, err := foundry.NewDefaultTokenProvider()
	if err != nil {
		log.Error(err, "Failed to create Azure credential")
		return err
	}

	runner := foundry.NewAgentRunner(tokens,
		foundry.WithHTTPClient(telemetry.HTTPClient(0)),
		foundry.WithTimeout(env.ProxyUpstreamTimeout.Get()),
	)

	policy := apierrors.PolicyFromEnv()
	log.Info("Starting agent proxy",
		"version", version.Version,
		"exposeErrorDetail", policy.ExposeDetail,
		"uniformErrorStatus", policy.UniformStatus,
		"subscriptionKey", env.ProxySubscriptionKey.Get() != "",
	)

	server := httpserver.NewHTTPServer(httpserver.ServerConfig{
		Addr:            addr,
		Runner:          runner,
		ErrorPolicy:     policy,
		SubscriptionKey: env.ProxySubscriptionKey.Get(),
		ShutdownTimeout: env.ProxyShutdownTimeout.Get(),
		Logger:          log,
		Metrics:         metrics.New(),
	})
	if err := server.Run(ctx); err != nil {
		log.Error(err, "Agent proxy stopped with error")
		return err
	}
	log.Info("Agent proxy stopped")
	return nil
}
