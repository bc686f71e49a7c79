package apikey

import (
	"net/http"
	"strings"
)

// Service-to-service calls carry a static bearer credential, distinct from
// end-user session tokens. Middleware enforces it on the receiving side and
// Transport attaches it on the calling side.

// Middleware rejects requests whose Authorization header does not carry the
// expected bearer key.
func Middleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || token != key {
				http.Error(w, "invalid api key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Transport is an http.RoundTripper that adds the bearer key to every
// outgoing request.
type Transport struct {
	Key  string
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.Key)
	return base.RoundTrip(clone)
}
