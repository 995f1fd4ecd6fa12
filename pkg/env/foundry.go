package env

import "time"

// Registration command.
var (
	AzureAIProjectEndpoint = RegisterRequiredStringVar(
		"AZURE_AI_PROJECT_ENDPOINT",
		"Azure AI Foundry project endpoint, e.g. https://<resource>.services.ai.azure.com/api/projects/<project>.",
		ComponentRegistration,
	)

	AzureAIModelDeploymentName = RegisterStringVar(
		"AZURE_AI_MODEL_DEPLOYMENT_NAME",
		"gpt-4o",
		"Model deployment the registered agent runs on.",
		ComponentRegistration,
	)
)

// Agent proxy.
var (
	ProxyAddr = RegisterStringVar(
		"AGENT_PROXY_ADDR",
		":8000",
		"Address the agent proxy listens on.",
		ComponentProxy,
	)

	ProxyUpstreamTimeout = RegisterDurationVar(
		"AGENT_PROXY_UPSTREAM_TIMEOUT",
		0,
		"Timeout for one call to a Foundry agent. Zero disables the timeout.",
		ComponentProxy,
	)

	ProxyShutdownTimeout = RegisterDurationVar(
		"AGENT_PROXY_SHUTDOWN_TIMEOUT",
		10*time.Second,
		"Grace period for in-flight requests on SIGINT/SIGTERM.",
		ComponentProxy,
	)

	ProxyExposeErrorDetail = RegisterBoolVar(
		"AGENT_PROXY_EXPOSE_ERROR_DETAIL",
		true,
		"Return the raw upstream error text in the `detail` field. When false a fixed message per error kind is returned.",
		ComponentProxy,
	)

	ProxyUniformErrorStatus = RegisterBoolVar(
		"AGENT_PROXY_UNIFORM_ERROR_STATUS",
		true,
		"Answer every failed agent call with HTTP 500. When false the status is derived from the error kind (502, 504, ...). The `kind` field is returned either way.",
		ComponentProxy,
	)

	ProxySubscriptionKey = RegisterStringVar(
		"AGENT_PROXY_SUBSCRIPTION_KEY",
		"",
		"When set, /run_agent requires a matching Ocp-Apim-Subscription-Key header.",
		ComponentProxy,
	)
)

// Shared by both binaries.
var (
	LogLevel = RegisterStringVar(
		"AGENT_PROXY_LOG_LEVEL",
		"info",
		"Log level: debug, info, warn, error.",
		ComponentShared,
	)

	LogEnvironment = RegisterStringVar(
		"AGENT_PROXY_ENV",
		"",
		"Set to `development` for colored console logs.",
		ComponentShared,
	)

	OtelTracingEnabled = RegisterBoolVar(
		"OTEL_TRACING_ENABLED",
		false,
		"Export traces over OTLP/gRPC. The exporter honours the standard OTEL_EXPORTER_OTLP_* variables.",
		ComponentShared,
	)
	OtelLoggingEnabled = RegisterBoolVar(
		"OTEL_LOGGING_ENABLED",
		false,
		"Export one OTLP/gRPC log record per agent call. The exporter honours the standard OTEL_EXPORTER_OTLP_* variables.",
		ComponentShared,
	)
)
