// Package requestid assigns each request a correlation id. The id rides the
// request context, every log line, and the event rows written on behalf of
// the request, so a mutation can be traced from HTTP edge to log entry.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"croptrace/pkg/requestcontext"
)

// Header is the inbound/outbound correlation header.
const Header = "X-Request-ID"

// Middleware installs a request id into the context, honoring an inbound
// X-Request-ID from a trusted proxy and minting one otherwise. The id is
// echoed on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
