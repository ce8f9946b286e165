// ABOUTME: Prometheus metrics for the streaming service
// ABOUTME: Session, transfer and HTTP request instrumentation
// Package metrics defines the Prometheus collectors exported on /metrics.
// Collectors register on a private registry so several instances can coexist
// in one process.
package metrics
