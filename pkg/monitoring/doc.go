// Package monitoring provides Prometheus metrics, tracing helpers and
// recording functions for the deployer. It exposes deployment-specific
// gauges and counters next to the generic controller-runtime metrics
// already registered on the same registry.
//
// All metrics follow the naming convention cloudrun_deployer_<metric>_<unit>
// and are registered against controller-runtime's default Prometheus registry
// on import.
//
// Usage in the lifecycle controller:
//
//	monitoring.SetServiceInfo(id.ServiceName, id.Region, string(phase))
//	monitoring.RecordOperation("deploy", string(role), err, elapsed)
//
// Usage in the poller:
//
//	monitoring.RecordPoll(id.ServiceName, monitoring.PollOutcomePending)
package monitoring
