// Package telemetry groups the operational subsystems: structured logging,
// Prometheus metrics, and health probes.
package telemetry
