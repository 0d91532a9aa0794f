// Package middleware holds the handler wrappers the relay server installs:
//
//	middleware.Chain(mux,
//	    middleware.Recover(logger),
//	    middleware.RequestID,
//	    middleware.AccessLog(logger),
//	)
//
// Recover is outermost so a panic anywhere below still yields a JSON 500.
// RequestID runs before AccessLog so the access record carries the id
// through the logging handler.
//
// RequestID reuses a well-formed client X-Request-ID (printable ASCII, at
// most 128 bytes) or generates a UUID. The orchestrator adopts the same id
// for the request's metadata.
package middleware
