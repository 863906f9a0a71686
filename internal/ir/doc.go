// Package ir provides the value types and document protocol shared by the
// compiler, the query emitter and the execution decoder.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Vertex documents stored in the backend have this shape:
//
//	{
//	  "id": "1",
//	  "label": "person",
//	  "_partition": "1",
//	  "name": ["marko"],
//	  "_edge": [ {"id": "7", "label": "knows", "_sinkV": "2", "_sinkVLabel": "person", "weight": 0.5} ],
//	  "_reverse_edge": [ ... ]
//	}
//
// Property values are single values or arrays (multi-valued properties).
// An adjacency container is either an array of edge objects or the spill
// marker {"_spilled": true}, meaning the edges live outside the document
// and are loaded on demand.
package ir
