package foundry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/incidentnow/agentproxy/pkg/foundry"

// AgentRunner sends one message to a published Foundry agent and returns its
// text output. It keeps no per-call state and is safe for concurrent use.
type AgentRunner struct {
	tokens     TokenProvider
	httpClient *http.Client
	baseURL    func(AgentRef) string
	timeout    time.Duration
}

// RunnerOption configures an AgentRunner.
type RunnerOption func(*AgentRunner)

// WithHTTPClient sets the client used for the outbound call.
func WithHTTPClient(c *http.Client) RunnerOption {
	return func(r *AgentRunner) { r.httpClient = c }
}

// WithBaseURLFunc replaces ApplicationBaseURL, e.g. to target a local fake.
func WithBaseURLFunc(f func(AgentRef) string) RunnerOption {
	return func(r *AgentRunner) { r.baseURL = f }
}

// WithTimeout bounds each call. Zero means no timeout.
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *AgentRunner) { r.timeout = d }
}

func NewAgentRunner(tokens TokenProvider, opts ...RunnerOption) *AgentRunner {
	r := &AgentRunner{
		tokens:     tokens,
		httpClient: http.DefaultClient,
		baseURL:    ApplicationBaseURL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run acquires a token, issues exactly one "create response" call with
// message as input, and returns the response's output text. Failures are
// returned as *Error.
func (r *AgentRunner) Run(ctx context.Context, ref AgentRef, message string) (string, error) {
	log := logr.FromContextOrDiscard(ctx).WithName("foundry").WithValues(
		"resource", ref.Resource,
		"project", ref.Project,
		"agent", ref.Agent,
	)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "foundry.run_agent", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("foundry.resource", ref.Resource),
		attribute.String("foundry.project", ref.Project),
		attribute.String("foundry.agent", ref.Agent),
	)

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := r.run(ctx, ref, message)
	emitCallRecord(ctx, ref, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(KindOf(err)))
		log.V(1).Info("Agent call failed", "kind", KindOf(err), "error", err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("foundry.output_length", len(output)))
	log.V(1).Info("Agent call completed", "outputLength", len(output))
	return output, nil
}

func (r *AgentRunner) run(ctx context.Context, ref AgentRef, message string) (string, error) {
	baseURL, err := parseBaseURL(r.baseURL(ref))
	if err != nil {
		return "", &Error{Kind: KindInvalidRequest, Op: "build endpoint", Err: err}
	}

	token, err := acquireToken(ctx, r.tokens)
	if err != nil {
		return "", err
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(token),
		option.WithQuery("api-version", APIVersion),
		option.WithHTTPClient(r.httpClient),
		option.WithMaxRetries(0),
	)

	resp, err := client.Responses.New(ctx, responses.ResponseNewParams{
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(message),
		},
	})
	if err != nil {
		return "", classify("create response", err)
	}
	if resp.Error.Message != "" {
		return "", &Error{
			Kind: KindUpstream,
			Op:   "create response",
			Err:  fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message),
		}
	}

	return resp.OutputText(), nil
}

// emitCallRecord sends one record per call to the global OpenTelemetry
// logger provider, a no-op unless telemetry installed one.
func emitCallRecord(ctx context.Context, ref AgentRef, elapsed time.Duration, err error) {
	var rec otellog.Record
	rec.SetTimestamp(time.Now())
	rec.AddAttributes(
		otellog.String("foundry.resource", ref.Resource),
		otellog.String("foundry.project", ref.Project),
		otellog.String("foundry.agent", ref.Agent),
		otellog.Int64("foundry.duration_ms", elapsed.Milliseconds()),
	)
	if err != nil {
		rec.SetSeverity(otellog.SeverityError)
		rec.SetSeverityText("ERROR")
		rec.SetBody(otellog.StringValue("Agent call failed"))
		rec.AddAttributes(otellog.String("foundry.error_kind", string(KindOf(err))))
	} else {
		rec.SetSeverity(otellog.SeverityInfo)
		rec.SetSeverityText("INFO")
		rec.SetBody(otellog.StringValue("Agent call completed"))
	}
	global.Logger(tracerName).Emit(ctx, rec)
}

// parseBaseURL rejects addresses that do not name an absolute http(s) host,
// e.g. a resource name containing a space.
func parseBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid agent endpoint %q", raw)
	}
	return u.String(), nil
}
