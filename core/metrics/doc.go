// Package metrics defines how planning runs are reported for observability.
// A Sink receives one RunEvent per run; sinks that also implement
// StageRecorder receive the duration of every pipeline stage. Sinks are
// created from configuration through the registry and combined with
// NewMultiSink when several are configured.
package metrics
