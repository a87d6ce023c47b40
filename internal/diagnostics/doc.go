// Package diagnostics assembles a point-in-time view of the host the server
// runs on.
//
// The package implements two components:
//
//   - Builder: produces a Snapshot with total available memory, host name,
//     resolved addresses and, when running inside a Linux cgroup v1
//     container, the container's memory usage, memory limit and cumulative
//     CPU time. Byte and nanosecond counters are rendered with FormatBestUnit
//     and FormatMillisecond.
//
//   - SystemMetricsCollector: best-effort host details (CPU model, load
//     average, uptime) shown next to the snapshot.
//
// Environment access goes through the Runtime and Resolver interfaces and an
// afero.Fs so the snapshot logic can be exercised with fakes.
package diagnostics
