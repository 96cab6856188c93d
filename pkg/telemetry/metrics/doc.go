// Package metrics provides Prometheus metrics for the custody service:
// ledger appends and rejections, chain verification failures, query
// latency, item counts, and HTTP request totals.
//
// All metrics live on a private registry exposed through Handler, so
// tests can create collectors without fighting over the default registry.
package metrics
