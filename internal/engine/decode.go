package engine

import (
	"github.com/roach88/gview/internal/ir"
)

// decodeVertex builds a vertex field from a stored vertex document.
func decodeVertex(doc ir.IRObject) (*VertexField, error) {
	id, err := requiredString(doc, "", ir.KeyID)
	if err != nil {
		return nil, err
	}
	v := &VertexField{ID: id, props: make(map[string]*PropertyField)}

	if v.Label, err = optionalString(doc, id, ir.KeyLabel); err != nil {
		return nil, err
	}
	if v.Partition, err = optionalString(doc, id, ir.KeyPartition); err != nil {
		return nil, err
	}
	if v.Out, err = decodeAdjacency(doc, v, false); err != nil {
		return nil, err
	}
	if v.In, err = decodeAdjacency(doc, v, true); err != nil {
		return nil, err
	}

	for _, k := range doc.SortedKeys() {
		if ir.IsReservedProperty(k) {
			continue
		}
		v.setProperty(k, doc[k])
	}
	return v, nil
}

// decodeAdjacency decodes the forward or reverse adjacency list of owner.
// An absent list is empty.
func decodeAdjacency(doc ir.IRObject, owner *VertexField, reverse bool) (*AdjacencyListField, error) {
	key := ir.AdjacencyKey(reverse)
	list := newAdjacencyList(reverse)

	raw, ok := doc[key]
	if !ok {
		return list, nil
	}
	switch val := raw.(type) {
	case ir.IRNull:
		return list, nil
	case ir.IRArray:
		for i, elem := range val {
			edgeDoc, ok := elem.(ir.IRObject)
			if !ok {
				return nil, malformedAdjacency(owner.ID, key, "edge %d is %T, not an object", i, elem)
			}
			e, err := decodeEdge(edgeDoc, owner, reverse)
			if err != nil {
				return nil, err
			}
			list.Put(e)
		}
		return list, nil
	case ir.IRObject:
		if !isSpilledMarker(val) {
			return nil, malformedAdjacency(owner.ID, key, "object adjacency list without %s marker", ir.KeySpilled)
		}
		list.Spilled = true
		return list, nil
	default:
		return nil, malformedAdjacency(owner.ID, key, "adjacency list is %T", raw)
	}
}

func isSpilledMarker(obj ir.IRObject) bool {
	spilled, ok := obj[ir.KeySpilled].(ir.IRBool)
	return ok && bool(spilled)
}

// decodeEdge builds an edge field from an edge document stored in owner's
// forward (reverse=false) or reverse adjacency list. The owner is the
// source of a forward edge and the sink of a reverse one.
func decodeEdge(doc ir.IRObject, owner *VertexField, reverse bool) (*EdgeField, error) {
	key := ir.AdjacencyKey(reverse)
	id, err := requiredString(doc, owner.ID, ir.KeyEdgeID)
	if err != nil {
		return nil, malformedAdjacency(owner.ID, key, "edge document without id")
	}
	e := &EdgeField{ID: id, Doc: doc}
	if e.Label, err = optionalString(doc, owner.ID, ir.KeyLabel); err != nil {
		return nil, err
	}

	if reverse {
		e.SinkID, e.SinkLabel = owner.ID, owner.Label
		if e.SourceID, err = requiredString(doc, owner.ID, ir.KeySourceV); err != nil {
			return nil, err
		}
		if e.SourceLabel, err = optionalString(doc, owner.ID, ir.KeySourceVLabel); err != nil {
			return nil, err
		}
		return e, nil
	}

	e.SourceID, e.SourceLabel = owner.ID, owner.Label
	if e.SinkID, err = requiredString(doc, owner.ID, ir.KeySinkV); err != nil {
		return nil, err
	}
	if e.SinkLabel, err = optionalString(doc, owner.ID, ir.KeySinkVLabel); err != nil {
		return nil, err
	}
	return e, nil
}

func requiredString(doc ir.IRObject, vertexID, key string) (string, error) {
	raw, ok := doc[key]
	if !ok {
		return "", missingField(vertexID, key, "document has no %s", key)
	}
	s, ok := raw.(ir.IRString)
	if !ok {
		return "", malformedDocument(vertexID, key, "%s is %T, not a string", key, raw)
	}
	return string(s), nil
}

func optionalString(doc ir.IRObject, vertexID, key string) (string, error) {
	raw, ok := doc[key]
	if !ok {
		return "", nil
	}
	switch s := raw.(type) {
	case ir.IRString:
		return string(s), nil
	case ir.IRNull:
		return "", nil
	}
	return "", malformedDocument(vertexID, key, "%s is %T, not a string", key, raw)
}

// IsBuildingLazily reports whether the adjacency list of a vertex document
// has to be built client-side: it was spilled to the edge store, or it is
// a reverse list the backend does not keep.
func IsBuildingLazily(doc ir.IRObject, reverse, useReverseEdges bool) bool {
	if reverse && !useReverseEdges {
		return true
	}
	obj, ok := doc[ir.AdjacencyKey(reverse)].(ir.IRObject)
	return ok && isSpilledMarker(obj)
}
