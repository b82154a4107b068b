package testutil

import (
	"net/http"

	id "croptrace/pkg/domain"
	"croptrace/pkg/requestcontext"
)

// WithCaller adds a participant handle to the request context, simulating
// what the auth middleware does for authenticated requests. Invalid handles
// are silently ignored.
func WithCaller(req *http.Request, handle string) *http.Request {
	parsed, err := id.ParseHandle(handle)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), parsed))
}

// WithRequestID adds a request id to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
