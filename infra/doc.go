// Package infra holds the adapters to the outside world: dataset providers
// (CSV, YAML, Postgres), the HiGHS engine binding, metrics sinks, the run
// history store, MQTT publication, Sentry reporting and zerolog output.
// Adapters register themselves in the core registries from init and depend
// only on interfaces defined in the core packages.
package infra
