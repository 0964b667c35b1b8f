// Package output renders scan snapshots for the command line.
//
// Three formats are supported:
//
//   - tree: a lipgloss tree whose root carries the total endpoint count and
//     whose branches are module groups labelled "[count]name"
//   - json: the snapshot as indented JSON
//   - yaml: the same document as YAML
//
// Renderers never mutate the snapshot. Group and endpoint order is the
// discovery order the aggregator produced.
//
// # Snapshot Comparison
//
// SameEndpoints ignores the fields that change on every pass (id,
// completedAt), so watch mode only re-renders when the rendered output
// would change. DiffSnapshots lists the endpoints added and removed
// between two passes for the watch header.
package output
