package engine

import "github.com/roach88/gview/internal/ir"

// VertexCache holds the decoded vertices of one connection, keyed by id.
//
// The cache is shared by every query on the connection and is not locked:
// callers must serialize decodes on a connection.
type VertexCache struct {
	vertices map[string]*VertexField
}

// NewVertexCache creates an empty cache.
func NewVertexCache() *VertexCache {
	return &VertexCache{vertices: make(map[string]*VertexField)}
}

// Get returns the cached vertex with id.
func (c *VertexCache) Get(id string) (*VertexField, bool) {
	v, ok := c.vertices[id]
	return v, ok
}

// Len returns the number of cached vertices.
func (c *VertexCache) Len() int {
	return len(c.vertices)
}

// AddOrUpdate decodes doc and merges it into the entry for id, creating the
// entry on first sight. Decoding the same vertex again never creates a
// second entry: properties from both documents remain readable, and the
// existing field pointer is returned so outstanding records stay valid.
func (c *VertexCache) AddOrUpdate(id string, doc ir.IRObject) (*VertexField, error) {
	fresh, err := decodeVertex(doc)
	if err != nil {
		return nil, err
	}
	if fresh.ID != id {
		return nil, malformedDocument(id, ir.KeyID, "document id %q does not match %q", fresh.ID, id)
	}

	existing, ok := c.vertices[id]
	if !ok {
		c.vertices[id] = fresh
		cacheEntries.Inc()
		return fresh, nil
	}
	existing.merge(fresh)
	return existing, nil
}

// merge folds a newer decode of the same vertex into v.
func (v *VertexField) merge(newer *VertexField) {
	if newer.Label != "" {
		v.Label = newer.Label
	}
	if newer.Partition != "" {
		v.Partition = newer.Partition
	}
	for _, name := range newer.names {
		if _, ok := v.props[name]; !ok {
			v.names = append(v.names, name)
		}
		v.props[name] = newer.props[name]
	}
	v.Out.merge(newer.Out)
	v.In.merge(newer.In)
}

// merge folds newer's edges into a. Edge fields already in a are updated
// in place so records holding them see the new document.
func (a *AdjacencyListField) merge(newer *AdjacencyListField) {
	for _, id := range newer.order {
		e := newer.edges[id]
		if old, ok := a.edges[id]; ok {
			*old = *e
			continue
		}
		a.Put(e)
	}
	switch {
	case newer.Spilled:
		// A materialized list keeps its edges; an unmaterialized one is
		// already spilled.
	case a.Spilled:
		// The list was pulled back inline; it is complete again.
		a.Spilled = false
		a.Expanded = false
	}
}
