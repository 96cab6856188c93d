// Package middleware provides the HTTP middleware chain: request IDs,
// structured request logging, panic recovery, CORS, timeouts, and request
// metrics.
package middleware
