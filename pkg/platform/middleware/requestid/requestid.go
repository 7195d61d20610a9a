// Package requestid assigns every request an ID that is echoed to the client
// and attached to all log lines for that request.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"idlens/pkg/requestcontext"
)

// Header carries the request ID in both directions.
const Header = "X-Request-ID"

// maxInboundLen bounds caller-supplied IDs.
const maxInboundLen = 128

// Middleware reuses a sane inbound X-Request-ID or generates a UUID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" || len(id) > maxInboundLen {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}
