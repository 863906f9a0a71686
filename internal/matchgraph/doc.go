// Package matchgraph provides the pattern graph: a coarse, graph-shaped view
// of a compiled traversal used to reason about join structure.
//
// A Graph is the union of ConnectedComponents. Each component owns the
// MatchNodes (bound vertex aliases) and MatchEdges (bound edge aliases) that
// reach one another through pattern edges, so components can be joined
// independently.
//
// LOOKUP RULES:
//   - Aliases compare case-insensitively (Unicode case folding).
//   - ContainsNode, TryGetNode and TryGetEdge scan components in insertion
//     order and stop at the first match.
//   - A tail node is retrievable with TryGetNode but is not reported by
//     ContainsNode: it exists structurally, as the far end of an edge, and is
//     not an independently joinable root.
//   - A non-tail alias is unique across the whole graph.
//
// The statistics carried by nodes and edges are data only. Nothing in this
// package estimates cost.
package matchgraph
