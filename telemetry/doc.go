// Package telemetry exposes transfer loop metrics.
//
// The loop reports through the Collector interface; Noop discards
// everything and PrometheusCollector exports counters, an in-flight gauge
// and a submission-to-delivery histogram.
package telemetry
