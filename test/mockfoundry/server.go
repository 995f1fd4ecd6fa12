// Package mockfoundry is an in-process fake of the two Foundry surfaces this
// repository talks to: the OpenAI Responses protocol of a published agent
// application and the project agents API.
package mockfoundry

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/incidentnow/agentproxy/pkg/foundry"
)

// RecordedRequest is one request the fake received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Failure makes the fake answer with a fixed status and body.
type Failure struct {
	Status int
	Body   string
	// Delay is slept before answering.
	Delay time.Duration
}

type Server struct {
	srv    *httptest.Server
	router *mux.Router

	mu           sync.Mutex
	requests     []RecordedRequest
	output       string
	responseFail *Failure
	rawResponse  string
	agentFail    *Failure
	agents       map[string]foundry.AgentObject
	nextID       int
}

// NewServer starts a fake that answers every Responses call with output.
func NewServer(output string) *Server {
	s := &Server{
		output: output,
		agents: map[string]foundry.AgentObject{},
	}
	s.setupRoutes()
	s.srv = httptest.NewServer(s.router)
	return s
}

func (s *Server) Close() { s.srv.Close() }

// URL is the scheme and host of the fake.
func (s *Server) URL() string { return s.srv.URL }

// BaseURL maps an AgentRef onto the fake the way foundry.ApplicationBaseURL
// maps it onto the real host.
func (s *Server) BaseURL(ref foundry.AgentRef) string {
	return s.srv.URL + foundry.ApplicationPath(ref)
}

// ProjectEndpoint is the project endpoint of project on the fake.
func (s *Server) ProjectEndpoint(project string) string {
	return s.srv.URL + "/api/projects/" + project
}

func (s *Server) SetOutput(output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.output = output
}

// FailResponses makes every Responses call fail. nil restores success.
func (s *Server) FailResponses(f *Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responseFail = f
}

// SetRawResponse makes Responses calls return body verbatim with status 200.
func (s *Server) SetRawResponse(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawResponse = body
}

// FailAgents makes every agents API call fail. nil restores success.
func (s *Server) FailAgents(f *Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agentFail = f
}

// AddAgent seeds an existing agent.
func (s *Server) AddAgent(name string) foundry.AgentObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeAgent(name)
}

// Requests returns a copy of everything received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// CallCount counts received requests whose path ends with suffix.
func (s *Server) CallCount(suffix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if strings.HasSuffix(r.Path, suffix) {
			n++
		}
	}
	return n
}

func (s *Server) setupRoutes() {
	r := mux.NewRouter()
	r.Use(s.record)

	r.HandleFunc("/api/projects/{project}/applications/{agent}/protocols/openai/responses", s.handleResponses).Methods(http.MethodPost)
	r.HandleFunc("/api/projects/{project}/agents", s.handleCreateAgent).Methods(http.MethodPost)
	r.HandleFunc("/api/projects/{project}/agents/{name}", s.handleGetAgent).Methods(http.MethodGet)

	r.NotFoundHandler = s.record(http.HandlerFunc(s.handleNotFound))

	s.router = r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleResponses(w http.ResponseWriter, r *http.Request) {
	var params struct {
		Input json.RawMessage `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request_error", err.Error()))
		return
	}

	s.mu.Lock()
	fail, raw, output := s.responseFail, s.rawResponse, s.output
	s.mu.Unlock()

	if fail != nil {
		writeFailure(r, w, fail)
		return
	}
	if raw != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, raw)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         "resp_mock",
		"object":     "response",
		"created_at": time.Now().Unix(),
		"status":     "completed",
		"model":      mux.Vars(r)["agent"],
		"output": []any{
			map[string]any{
				"type":   "message",
				"id":     "msg_mock",
				"status": "completed",
				"role":   "assistant",
				"content": []any{
					map[string]any{
						"type":        "output_text",
						"text":        output,
						"annotations": []any{},
					},
				},
			},
		},
	})
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req foundry.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request_error", "name is required"))
		return
	}

	s.mu.Lock()
	fail := s.agentFail
	var agent foundry.AgentObject
	if fail == nil {
		agent = s.storeAgent(req.Name)
	}
	s.mu.Unlock()

	if fail != nil {
		writeFailure(r, w, fail)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	s.mu.Lock()
	fail := s.agentFail
	agent, ok := s.agents[name]
	s.mu.Unlock()

	switch {
	case fail != nil:
		writeFailure(r, w, fail)
	case !ok:
		writeJSON(w, http.StatusNotFound, errorBody("not_found", fmt.Sprintf("agent %q not found", name)))
	default:
		writeJSON(w, http.StatusOK, agent)
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":  "Endpoint not found",
		"path":   r.URL.Path,
		"method": r.Method,
	})
}

// storeAgent must be called with s.mu held.
func (s *Server) storeAgent(name string) foundry.AgentObject {
	s.nextID++
	version := fmt.Sprintf("%d", s.nextID)
	agent := foundry.AgentObject{
		Object: "agent",
		ID:     fmt.Sprintf("%s:%s", name, version),
		Name:   name,
	}
	agent.Versions.Latest = foundry.AgentVersionObject{
		Object:    "agent.version",
		ID:        agent.ID,
		Name:      name,
		Version:   version,
		CreatedAt: time.Now().Unix(),
	}
	s.agents[name] = agent
	return agent
}

func writeFailure(r *http.Request, w http.ResponseWriter, f *Failure) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.Status)
	_, _ = io.WriteString(w, f.Body)
}

func errorBody(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"type":    code,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
