// Package engine executes emitted vertex queries and decodes the results
// into graph records.
//
// A Connection is one session against a Backend. It owns a VertexCache
// keyed by vertex id, shared by every query on the connection. Decoding is
// pull-driven: Portal.GetVertices returns a RecordIterator that reads one
// backend row per step and stops early when the caller closes it.
//
// Two decode strategies exist and are chosen per row:
//
// Cross-apply: the backend joined the vertex with one edge of its adjacency
// list. Rows are deduplicated by edge id, since multi-valued property joins
// repeat them, and each record carries an edge block after the vertex part.
//
// Lazy adjacency: the vertex's list was spilled to a separate store, or it
// is a reverse list the backend does not keep. Rows are deduplicated by
// vertex id and the record carries only the vertex part; the Expander later
// loads the list and cross-applies it client-side.
//
// Stored documents that break the document protocol produce a *DecodeError
// and end the sequence. Backend errors are returned wrapped, never
// swallowed.
//
// A connection is not safe for concurrent use.
package engine
