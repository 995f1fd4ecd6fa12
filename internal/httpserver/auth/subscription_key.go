package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/incidentnow/agentproxy/internal/httpserver/errors"
	"github.com/incidentnow/agentproxy/internal/httpserver/handlers"
)

// SubscriptionKeyHeader is the header API Management style gateways and the
// incident frontend send the shared key in.
const SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// SubscriptionKeyAuthenticator checks a shared key. An empty key disables the
// check.
type SubscriptionKeyAuthenticator struct {
	key []byte
}

func NewSubscriptionKeyAuthenticator(key string) *SubscriptionKeyAuthenticator {
	return &SubscriptionKeyAuthenticator{key: []byte(key)}
}

func (a *SubscriptionKeyAuthenticator) Enabled() bool { return len(a.key) > 0 }

// Authenticate reports whether the request carries the configured key.
func (a *SubscriptionKeyAuthenticator) Authenticate(header http.Header) bool {
	if !a.Enabled() {
		return true
	}
	got := []byte(header.Get(SubscriptionKeyHeader))
	return subtle.ConstantTimeCompare(got, a.key) == 1
}

// Middleware rejects requests without the key with 401.
func (a *SubscriptionKeyAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Authenticate(r.Header) {
			next.ServeHTTP(w, r)
			return
		}
		ew, ok := w.(handlers.ErrorResponseWriter)
		if !ok {
			ew = handlers.NewErrorResponseWriter(w, logr.FromContextOrDiscard(r.Context()).WithName("auth"))
		}
		ew.RespondWithError(errors.NewUnauthorizedError("Missing or invalid subscription key", nil))
	})
}
