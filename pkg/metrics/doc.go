/*
Package metrics exposes Prometheus metrics for cutover operations.

Metrics cover operation counts and durations by kind, traffic switches,
health-wait durations and timeouts, abort-path invocations, and whether
capacity protection is currently held. The Handler function returns the
promhttp handler; long-running operations can serve it on a side listener
when a metrics address is configured.
*/
package metrics
