package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/incidentnow/agentproxy/internal/httpserver/auth"
	apierrors "github.com/incidentnow/agentproxy/internal/httpserver/errors"
	"github.com/incidentnow/agentproxy/internal/httpserver/handlers"
	"github.com/incidentnow/agentproxy/internal/metrics"
)

const (
	APIPathRunAgent = "/run_agent"
	APIPathHealth   = "/health"
	APIPathMetrics  = "/metrics"
)

// ServerConfig holds the proxy server configuration
type ServerConfig struct {
	Addr            string
	Runner          handlers.AgentRunner
	ErrorPolicy     apierrors.Policy
	SubscriptionKey string
	ShutdownTimeout time.Duration
	Logger          logr.Logger
	Metrics         *metrics.Metrics
}

// HTTPServer is the agent proxy's HTTP surface.
type HTTPServer struct {
	config     ServerConfig
	router     *mux.Router
	handlers   *handlers.Handlers
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

func NewHTTPServer(config ServerConfig) *HTTPServer {
	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	s := &HTTPServer{
		config: config,
		router: mux.NewRouter(),
		handlers: handlers.NewHandlers(&handlers.Base{
			Runner:      config.Runner,
			Metrics:     config.Metrics,
			ErrorPolicy: config.ErrorPolicy,
		}),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *HTTPServer) setupRoutes() {
	s.router.Use(loggingMiddleware(s.config.Logger, s.config.Metrics))

	s.router.HandleFunc(APIPathHealth, s.handlers.Health.HandleHealth).Methods(http.MethodGet)
	s.router.Handle(APIPathMetrics, s.config.Metrics.Handler()).Methods(http.MethodGet)

	keyAuth := auth.NewSubscriptionKeyAuthenticator(s.config.SubscriptionKey)
	s.router.Handle(APIPathRunAgent,
		keyAuth.Middleware(adaptHandler(s.handlers.RunAgent.HandleRunAgent)),
	).Methods(http.MethodPost)

	s.router.NotFoundHandler = adaptHandler(func(w handlers.ErrorResponseWriter, r *http.Request) {
		w.RespondWithError(apierrors.NewNotFoundError("Not Found", nil))
	})
	s.router.MethodNotAllowedHandler = adaptHandler(func(w handlers.ErrorResponseWriter, r *http.Request) {
		w.RespondWithError(apierrors.NewMethodNotAllowedError("Method Not Allowed", nil))
	})
}

// Handler is the fully wrapped handler, including tracing.
func (s *HTTPServer) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "agent-proxy")
}

// Listen binds the configured address. Run calls it when needed.
func (s *HTTPServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr is the bound address, or nil before Listen.
func (s *HTTPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// ShutdownTimeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	log := s.config.Logger.WithName("http-server")

	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()
	log.Info("Agent proxy listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down", "timeout", s.config.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("graceful shutdown: %w", err))
		if err := s.httpServer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close: %w", err))
		}
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func adaptHandler(h func(handlers.ErrorResponseWriter, *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(handlers.NewErrorResponseWriter(w, logr.FromContextOrDiscard(r.Context())), r)
	})
}
