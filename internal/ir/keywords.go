package ir

// Document protocol field names shared with the storage layer.
// These names are fixed: documents written with any other spelling will
// not decode.
const (
	KeyID           = "id"
	KeyLabel        = "label"
	KeyPartition    = "_partition"
	KeyEdge         = "_edge"
	KeyReverseEdge  = "_reverse_edge"
	KeySourceV      = "_srcV"
	KeySinkV        = "_sinkV"
	KeySourceVLabel = "_srcVLabel"
	KeySinkVLabel   = "_sinkVLabel"
	KeySpilled      = "_spilled"
)

// Meta fields of a decoded edge block. They precede the requested edge
// properties in every cross-applied record.
const (
	KeyOtherV = "_otherV"
	KeyEdgeID = "id"
)

// Compilation keywords.
const (
	// NodeMarker projects the whole element (vertex or edge) rather than a
	// single property.
	NodeMarker = "*"

	// DefaultColumn is the single column of a table variable.
	DefaultColumn = "_value"

	// PathColumn is the column holding a materialized path.
	PathColumn = "_path"
)

// IsReservedProperty reports whether name is a protocol field rather than
// a user property of a vertex document.
func IsReservedProperty(name string) bool {
	switch name {
	case KeyID, KeyLabel, KeyPartition, KeyEdge, KeyReverseEdge:
		return true
	}
	return false
}

// IsMetaProperty reports whether name is one of the edge meta fields that
// FillMetaField writes.
func IsMetaProperty(name string) bool {
	switch name {
	case KeySourceV, KeySinkV, KeyOtherV, KeyEdgeID, KeyPartition, NodeMarker:
		return true
	}
	return false
}

// AdjacencyKey returns the document field holding forward or reverse edges.
func AdjacencyKey(reverse bool) string {
	if reverse {
		return KeyReverseEdge
	}
	return KeyEdge
}
