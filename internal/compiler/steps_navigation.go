package compiler

import (
	"github.com/google/uuid"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/queryir"
)

// V starts (or restarts) the traversal at vertices, optionally by id.
type V struct {
	IDs []any
}

func (V) StepName() string { return "V" }

func (s V) apply(c *Context) error {
	v := &VertexVariable{Kind: FreeVertex}
	c.Add(v, true)
	if err := c.idPredicate(s.StepName(), v, s.IDs); err != nil {
		return err
	}
	return c.SetPivot(v)
}

// E starts the traversal at edges, optionally by id.
type E struct {
	IDs []any
}

func (E) StepName() string { return "E" }

func (s E) apply(c *Context) error {
	e := &EdgeVariable{Kind: FreeEdge}
	c.Add(e, true)
	if err := c.idPredicate(s.StepName(), e, s.IDs); err != nil {
		return err
	}
	return c.SetPivot(e)
}

func (c *Context) idPredicate(step string, v Variable, ids []any) error {
	if len(ids) == 0 {
		return nil
	}
	lhs, err := column(v, ir.KeyID)
	if err != nil {
		return err
	}
	values := make([]queryir.Scalar, 0, len(ids))
	for _, id := range ids {
		lit, err := literalArg(step, id)
		if err != nil {
			return err
		}
		values = append(values, queryir.Literal{Value: lit})
	}
	if len(values) == 1 {
		c.AddPredicate(queryir.Compare{Left: lhs, Op: queryir.OpEq, Right: values[0]})
	} else {
		c.AddPredicate(queryir.In{Expr: lhs, Values: values})
	}
	return nil
}

// Inject adds literal values to the stream. It becomes the pivot only when
// it starts the traversal.
type Inject struct {
	Values []any
}

func (Inject) StepName() string { return "inject" }

func (s Inject) apply(c *Context) error {
	fn := newFunctionVariable("Inject", TypeScalar, nil)
	for _, v := range s.Values {
		lit, err := literalArg(s.StepName(), v)
		if err != nil {
			return err
		}
		fn.Args = append(fn.Args, queryir.Literal{Value: lit})
	}
	c.Add(fn, true)
	if c.pivot == nil {
		return c.SetPivot(fn)
	}
	return nil
}

// AddV creates a vertex. ID is generated when empty.
type AddV struct {
	ID         string
	Label      string
	Properties []PropertyArg
}

func (AddV) StepName() string { return "addV" }

func (s AddV) apply(c *Context) error {
	id := s.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	label := s.Label
	if label == "" {
		label = "vertex"
	}
	v := &VertexVariable{Kind: AddedVertex, ID: id, Label: label, Properties: s.Properties}
	c.Add(v, true)
	return c.SetPivot(v)
}

// Out moves to adjacent vertices along outgoing edges.
type Out struct{ Labels []string }

// In moves to adjacent vertices along incoming edges.
type In struct{ Labels []string }

// Both moves to adjacent vertices along edges in either direction.
type Both struct{ Labels []string }

// OutE moves to outgoing edges.
type OutE struct{ Labels []string }

// InE moves to incoming edges.
type InE struct{ Labels []string }

// BothE moves to incident edges.
type BothE struct{ Labels []string }

func (Out) StepName() string   { return "out" }
func (In) StepName() string    { return "in" }
func (Both) StepName() string  { return "both" }
func (OutE) StepName() string  { return "outE" }
func (InE) StepName() string   { return "inE" }
func (BothE) StepName() string { return "bothE" }

func (s Out) apply(c *Context) error {
	return c.navigate(s.StepName(), queryir.Forward, s.Labels, true)
}

func (s In) apply(c *Context) error {
	return c.navigate(s.StepName(), queryir.Backward, s.Labels, true)
}

func (s Both) apply(c *Context) error {
	return c.navigate(s.StepName(), queryir.Both, s.Labels, true)
}

func (s OutE) apply(c *Context) error {
	return c.navigate(s.StepName(), queryir.Forward, s.Labels, false)
}

func (s InE) apply(c *Context) error {
	return c.navigate(s.StepName(), queryir.Backward, s.Labels, false)
}

func (s BothE) apply(c *Context) error {
	return c.navigate(s.StepName(), queryir.Both, s.Labels, false)
}

// navigate binds the edges adjacent to the pivot and, when toVertex is set,
// the vertices at their far end.
func (c *Context) navigate(step string, dir queryir.Direction, labels []string, toVertex bool) error {
	pivot, err := c.requirePivot(step)
	if err != nil {
		return err
	}
	switch pivot.Type() {
	case TypeVertex, TypeTable, TypeUndefined:
	default:
		return invalidStep(step, "expects vertices, the current step produces %s", pivot.Type())
	}

	e := &EdgeVariable{Kind: AdjacentEdge, Vertex: pivot, Direction: dir, EdgeLabels: labels}
	c.Add(e, true)
	if err := c.labelPredicate(e, labels); err != nil {
		return err
	}
	if !toVertex {
		return c.SetPivot(e)
	}

	v, err := c.edgeVertex(e, e.farEnd())
	if err != nil {
		return err
	}
	return c.SetPivot(v)
}

// labelPredicate restricts v to any of labels.
func (c *Context) labelPredicate(v Variable, labels []string) error {
	if len(labels) == 0 {
		return nil
	}
	lhs, err := column(v, ir.KeyLabel)
	if err != nil {
		return err
	}
	var or queryir.Boolean
	for _, l := range labels {
		or = queryir.ConjoinOr(or, queryir.Compare{Left: lhs, Op: queryir.OpEq, Right: strLit(l)})
	}
	c.AddPredicate(or)
	return nil
}

// edgeVertex binds the vertex at one end of an edge-valued variable. The far
// end of an adjacent edge is bound through the MATCH path; every other end
// is joined on the edge document's endpoint field.
func (c *Context) edgeVertex(from Variable, end EdgeEnd) (*VertexVariable, error) {
	v := &VertexVariable{Kind: EdgeEndVertex, From: from, End: end}
	c.Add(v, true)

	if e, ok := from.(*EdgeVariable); ok && e.Kind == AdjacentEdge && e.sink == nil && end == e.farEnd() {
		e.sink = v
		return v, nil
	}

	id, err := column(v, ir.KeyID)
	if err != nil {
		return nil, err
	}
	eq := func(field string) (queryir.Boolean, error) {
		rhs, err := column(from, field)
		if err != nil {
			return nil, err
		}
		return queryir.Compare{Left: id, Op: queryir.OpEq, Right: rhs}, nil
	}

	if end == EndBoth {
		src, err := eq(ir.KeySourceV)
		if err != nil {
			return nil, err
		}
		sink, err := eq(ir.KeySinkV)
		if err != nil {
			return nil, err
		}
		v.join = queryir.Or{Terms: []queryir.Boolean{src, sink}}
	} else {
		if v.join, err = eq(end.column()); err != nil {
			return nil, err
		}
	}
	c.AddPredicate(v.join)
	return v, nil
}

// OutV moves from edges to their source vertices.
type OutV struct{}

// InV moves from edges to their sink vertices.
type InV struct{}

// BothV moves from edges to both endpoints.
type BothV struct{}

// OtherV moves from edges to the endpoint that was not the previous step.
type OtherV struct{}

func (OutV) StepName() string   { return "outV" }
func (InV) StepName() string    { return "inV" }
func (BothV) StepName() string  { return "bothV" }
func (OtherV) StepName() string { return "otherV" }

func (s OutV) apply(c *Context) error  { return c.toVertex(s.StepName(), EndSource) }
func (s InV) apply(c *Context) error   { return c.toVertex(s.StepName(), EndSink) }
func (s BothV) apply(c *Context) error { return c.toVertex(s.StepName(), EndBoth) }

func (s OtherV) apply(c *Context) error {
	pivot, err := c.requirePivot(s.StepName())
	if err != nil {
		return err
	}
	if e, ok := pivot.(*EdgeVariable); ok && e.Kind == FreeEdge {
		return invalidArgument(s.StepName(), "otherV() needs an edge reached from a vertex")
	}
	return c.toVertex(s.StepName(), EndOther)
}

func (c *Context) toVertex(step string, end EdgeEnd) error {
	pivot, err := c.requirePivot(step)
	if err != nil {
		return err
	}
	switch pivot.Type() {
	case TypeEdge, TypeTable, TypeUndefined:
	default:
		return invalidStep(step, "expects edges, the current step produces %s", pivot.Type())
	}

	v, err := c.edgeVertex(pivot, end)
	if err != nil {
		return err
	}
	return c.SetPivot(v)
}
