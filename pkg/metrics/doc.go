/*
Package metrics provides Prometheus metrics collection and exposition for
bffhd.

All metrics are package-level collectors registered once at init via
prometheus.MustRegister, exposed over HTTP by Handler (mounted by
cmd/bffhd alongside the gRPC listener and pkg/api's health endpoints).

# Categories

  - Engine: accepted/denied state transitions, store inconsistencies
    (spec.md §4.4, §7).
  - Resources: a periodic status tally kept current by Collector, which
    polls the resource registry every 15 seconds (a live per-Subscription
    gauge isn't meaningful here — dropping a Subscription is invisible to
    its Signal by design, see pkg/signal).
  - Audit: log writes and write failures (spec.md §4.9).
  - Auth: sessions started and failed, by mechanism (spec.md §4.8).
  - API: RPC count and duration, by method (spec.md §6).

Only the Resources and API collectors are updated by code in this module
(Collector and pkg/api's MetricsInterceptor). The Engine, Audit and Auth
counters are registered and exported, but no package increments them, so
they always read zero.
*/
package metrics
