// Package health provides liveness and readiness probes over the service's
// storage backends, plus a build-info endpoint.
package health
