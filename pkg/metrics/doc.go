// Package metrics exports Prometheus metrics for webhook reconciliation,
// identity sync deliveries and HTTP traffic. Each Collector owns its own
// registry, so tests can create as many as they need.
package metrics
