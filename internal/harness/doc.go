// Package harness runs traversal conformance scenarios end to end: it loads
// a graph into an in-memory store, compiles a traversal, plans and executes
// its queries, and checks assertions on the result.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: marko_knows
//	description: "Who marko knows"
//	fixture: modern
//	traversal: |
//	  steps: [
//	    {op: "V"},
//	    {op: "has", key: "name", value: "marko"},
//	    {op: "out", labels: ["knows"]},
//	  ]
//	assertions:
//	  - type: match_count
//	    count: 2
//	  - type: match_contains
//	    match: { N_0: "1", E_1: "7", N_2: "2" }
//
// dialect selects sql (the default, executed against the store) or
// document (emitted only). reverse_edges: false plans as if reverse
// adjacency lists were not stored. vertices may replace fixture with
// inline documents.
//
// # Assertion Types
//
//   - match_count: exactly count matches
//   - match_contains: some match binds the listed aliases to the listed ids
//   - query_count: exactly count planned queries
//   - query_contains: some planned query contains text
//   - logical_contains: the rendered relational form contains text
//   - failure_contains: compilation or execution failed with text
//   - stored_vertex: the store holds vertex id with the expect properties
//
// # Golden Files
//
// RunWithGolden snapshots the scenario name, dialect, query count and the
// sorted match rows as canonical JSON under testdata/golden.
package harness
