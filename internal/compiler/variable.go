package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/matchgraph"
	"github.com/roach88/gview/internal/queryir"
)

// VariableType is the variant tag of a traversal variable. It is fixed when
// the variable is created.
type VariableType int

const (
	TypeUndefined VariableType = iota
	TypeVertex
	TypeEdge
	TypeScalar
	TypeTable
	TypeVertexProperty
	TypeProperty
	TypeNull
)

func (t VariableType) String() string {
	switch t {
	case TypeVertex:
		return "vertex"
	case TypeEdge:
		return "edge"
	case TypeScalar:
		return "scalar"
	case TypeTable:
		return "table"
	case TypeVertexProperty:
		return "vertex-property"
	case TypeProperty:
		return "property"
	case TypeNull:
		return "null"
	default:
		return "undefined"
	}
}

// namePrefix is the alias prefix for variables of this type.
func (t VariableType) namePrefix() string {
	switch t {
	case TypeVertex:
		return "N"
	case TypeEdge:
		return "E"
	case TypeScalar, TypeVertexProperty, TypeProperty:
		return "S"
	default:
		return "R"
	}
}

// Variable is one step's output binding.
//
// Every variant embeds variableBase, which carries the default behavior;
// variants override only what differs. The projected-property set only
// grows.
type Variable interface {
	Type() VariableType

	// Name returns the alias the variable is bound to. It fails with
	// ErrUnboundVariable until the variable is added to a context.
	Name() (string, error)

	Labels() []string
	AddLabels(labels ...string)

	ProjectedProperties() []string
	Populate(property string)

	// tableRef is the FROM entry of the variable, or nil when the variable
	// is bound elsewhere (a MATCH path, an enclosing scope).
	tableRef() (queryir.TableRef, error)

	bind(names *nameAllocator)
	base() *variableBase
}

type variableBase struct {
	name      string
	labels    []string
	projected []string
}

func (b *variableBase) base() *variableBase { return b }

func (b *variableBase) Name() (string, error) {
	if b.name == "" {
		return "", &CompileError{
			Code:    ErrCodeUnboundVariable,
			Message: "variable name requested before the variable was bound",
		}
	}
	return b.name, nil
}

func (b *variableBase) Labels() []string { return b.labels }

func (b *variableBase) AddLabels(labels ...string) {
	b.labels = append(b.labels, labels...)
}

func (b *variableBase) ProjectedProperties() []string { return b.projected }

func (b *variableBase) Populate(property string) {
	if !slices.Contains(b.projected, property) {
		b.projected = append(b.projected, property)
	}
}

// nameAllocator hands out aliases for one traversal tree. Sub-contexts
// share their root's allocator so aliases never collide.
type nameAllocator struct {
	next int
}

func (a *nameAllocator) alloc(prefix string) string {
	name := fmt.Sprintf("%s_%d", prefix, a.next)
	a.next++
	return name
}

// bindVariable assigns an alias once.
func bindVariable(v Variable, names *nameAllocator) {
	b := v.base()
	if b.name == "" {
		b.name = names.alloc(v.Type().namePrefix())
	}
}

// property returns the scalar expression for v.property. Every property but
// the path column is added to v's projected set.
func property(v Variable, prop string) (queryir.Scalar, error) {
	if prop != ir.PathColumn {
		v.Populate(prop)
	}
	name, err := v.Name()
	if err != nil {
		return nil, err
	}
	if prop == ir.NodeMarker {
		return queryir.Star{Table: name}, nil
	}
	return queryir.ColumnRef{Table: name, Column: prop}, nil
}

// defaultProjection is the expression standing for v itself: the whole
// element for vertices and edges, the value column otherwise.
func defaultProjection(v Variable) (queryir.Scalar, error) {
	switch v.Type() {
	case TypeVertex, TypeEdge:
		return property(v, ir.NodeMarker)
	default:
		return property(v, ir.DefaultColumn)
	}
}

// reference is defaultProjection without populating anything. Rendering
// uses it so that emitting a query never changes the projected sets.
func reference(v Variable) (queryir.Scalar, error) {
	name, err := v.Name()
	if err != nil {
		return nil, err
	}
	switch v.Type() {
	case TypeVertex, TypeEdge:
		return queryir.Star{Table: name}, nil
	default:
		return queryir.ColumnRef{Table: name, Column: ir.DefaultColumn}, nil
	}
}

// VertexKind says how a vertex variable was bound.
type VertexKind int

const (
	// FreeVertex ranges over every vertex (V()).
	FreeVertex VertexKind = iota
	// EdgeEndVertex is an endpoint of an edge variable.
	EdgeEndVertex
	// AddedVertex is created by addV().
	AddedVertex
)

// EdgeEnd selects an endpoint of an edge.
type EdgeEnd int

const (
	EndSource EdgeEnd = iota
	EndSink
	EndOther
	EndBoth
)

// column is the edge document field holding the endpoint id.
func (e EdgeEnd) column() string {
	switch e {
	case EndSource:
		return ir.KeySourceV
	case EndSink:
		return ir.KeySinkV
	default:
		return ir.KeyOtherV
	}
}

func (e EdgeEnd) pattern() matchgraph.EdgeEnd {
	switch e {
	case EndSource:
		return matchgraph.EndSource
	case EndSink:
		return matchgraph.EndSink
	case EndOther:
		return matchgraph.EndOther
	default:
		return matchgraph.EndBoth
	}
}

// VertexVariable binds vertices.
type VertexVariable struct {
	variableBase
	Kind VertexKind

	// From and End are set for EdgeEndVertex. From is usually an
	// *EdgeVariable but may be any edge-valued variable (select, union).
	From Variable
	End  EdgeEnd

	// join is the predicate tying the vertex id to From's endpoint field,
	// nil when the vertex is an adjacent edge's far end.
	join queryir.Boolean

	// Label and Properties are set for AddedVertex.
	Label      string
	Properties []PropertyArg
	ID         string
}

func (v *VertexVariable) Type() VariableType { return TypeVertex }

func (v *VertexVariable) bind(names *nameAllocator) { bindVariable(v, names) }

func (v *VertexVariable) tableRef() (queryir.TableRef, error) {
	name, err := v.Name()
	if err != nil {
		return nil, err
	}
	if v.Kind == AddedVertex {
		args := []queryir.Scalar{
			queryir.Literal{Value: ir.IRString(v.ID)},
			queryir.Literal{Value: ir.IRString(v.Label)},
		}
		args = append(args, propertyArgs(v.Properties)...)
		return queryir.TableFunction{Name: "AddV", Args: args, Alias: name}, nil
	}
	return queryir.NamedTable{Name: "Node", Alias: name}, nil
}

// EdgeKind says how an edge variable was bound.
type EdgeKind int

const (
	// FreeEdge ranges over every edge (E()).
	FreeEdge EdgeKind = iota
	// AdjacentEdge is read from a vertex's adjacency list.
	AdjacentEdge
)

// EdgeVariable binds edges.
type EdgeVariable struct {
	variableBase
	Kind EdgeKind

	// Vertex and Direction are set for AdjacentEdge: the edge is read from
	// Vertex's forward (Forward), reverse (Backward) or both lists.
	Vertex    Variable
	Direction queryir.Direction

	// EdgeLabels restricts the edge (OR-combined); empty means any label.
	EdgeLabels []string

	// sink is the vertex variable bound to the far end through MATCH.
	sink *VertexVariable
}

func (e *EdgeVariable) Type() VariableType { return TypeEdge }

func (e *EdgeVariable) bind(names *nameAllocator) { bindVariable(e, names) }

func (e *EdgeVariable) tableRef() (queryir.TableRef, error) {
	if e.Kind == AdjacentEdge {
		return nil, nil
	}
	name, err := e.Name()
	if err != nil {
		return nil, err
	}
	return queryir.NamedTable{Name: "Edge", Alias: name}, nil
}

// farEnd is the endpoint that is not the adjacency list's owner.
func (e *EdgeVariable) farEnd() EdgeEnd {
	switch e.Direction {
	case queryir.Forward:
		return EndSink
	case queryir.Backward:
		return EndSource
	default:
		return EndOther
	}
}

// matchPath is the MATCH entry of an adjacent edge.
func (e *EdgeVariable) matchPath() (*queryir.MatchPath, error) {
	if e.Kind != AdjacentEdge {
		return nil, nil
	}
	src, err := e.Vertex.Name()
	if err != nil {
		return nil, err
	}
	name, err := e.Name()
	if err != nil {
		return nil, err
	}
	path := &queryir.MatchPath{Source: src, Edge: name, Direction: e.Direction}
	if e.sink != nil {
		if path.Sink, err = e.sink.Name(); err != nil {
			return nil, err
		}
	}
	return path, nil
}

// FunctionVariable is bound to a table-valued function: every step whose
// output is computed from its input (and sub-traversals) rather than read
// from storage.
//
//	FunctionVariable{Func: "Count", Subqueries: [dup]}  =>  CROSS APPLY Count((SELECT ...)) AS S_3
type FunctionVariable struct {
	variableBase
	typ  VariableType
	Func string

	// Input is the variable the function reads; nil for sources and
	// aggregates over a duplicated context.
	Input      Variable
	Args       []queryir.Scalar
	Subqueries []*Context
	Columns    []string

	// SideEffectKey is set for steps that publish a side effect.
	SideEffectKey string

	// Sources are the variables whose elements pass through this one
	// (branch pivots, labeled steps). Populated properties are forwarded
	// to them.
	Sources []Variable
}

func newFunctionVariable(fn string, typ VariableType, input Variable) *FunctionVariable {
	return &FunctionVariable{Func: fn, typ: typ, Input: input}
}

func (f *FunctionVariable) Type() VariableType { return f.typ }

func (f *FunctionVariable) Populate(property string) {
	f.variableBase.Populate(property)
	if property == ir.DefaultColumn || property == ir.PathColumn {
		return
	}
	for _, src := range f.Sources {
		if src != nil {
			src.Populate(property)
		}
	}
}

func (f *FunctionVariable) bind(names *nameAllocator) { bindVariable(f, names) }

func (f *FunctionVariable) tableRef() (queryir.TableRef, error) {
	name, err := f.Name()
	if err != nil {
		return nil, err
	}

	var args []queryir.Scalar
	if f.Input != nil {
		in, err := reference(f.Input)
		if err != nil {
			return nil, fmt.Errorf("%s input: %w", f.Func, err)
		}
		args = append(args, in)
	}
	args = append(args, f.Args...)
	for i, sub := range f.Subqueries {
		block, err := sub.ToSelectBlock()
		if err != nil {
			return nil, fmt.Errorf("%s subquery %d: %w", f.Func, i, err)
		}
		args = append(args, queryir.ScalarSubquery{Block: block})
	}
	if f.SideEffectKey != "" {
		args = append(args, queryir.Literal{Value: ir.IRString(f.SideEffectKey)})
	}

	columns := f.Columns
	if len(columns) == 0 {
		columns = f.projectedColumns()
	}
	return queryir.TableFunction{Name: f.Func, Args: args, Alias: name, Columns: columns}, nil
}

// projectedColumns lists the default column followed by populated properties.
func (f *FunctionVariable) projectedColumns() []string {
	def := ir.DefaultColumn
	if f.typ == TypeVertex || f.typ == TypeEdge {
		def = ir.NodeMarker
	}
	cols := []string{def}
	for _, p := range f.projected {
		if p != def {
			cols = append(cols, p)
		}
	}
	return cols
}

// ContextVariable stands for an enclosing context's pivot inside a
// sub-traversal. It shares the outer alias and forwards populated
// properties outward.
type ContextVariable struct {
	variableBase
	Outer Variable
}

func (c *ContextVariable) Type() VariableType { return c.Outer.Type() }

func (c *ContextVariable) Name() (string, error) { return c.Outer.Name() }

func (c *ContextVariable) Populate(property string) {
	c.variableBase.Populate(property)
	c.Outer.Populate(property)
}

func (c *ContextVariable) bind(*nameAllocator) {}

func (c *ContextVariable) tableRef() (queryir.TableRef, error) { return nil, nil }

// root follows context variables to the variable that owns the alias.
func (c *ContextVariable) root() Variable {
	v := c.Outer
	for {
		cv, ok := v.(*ContextVariable)
		if !ok {
			return v
		}
		v = cv.Outer
	}
}

// PathVariable materializes the path of steps taken so far.
type PathVariable struct {
	variableBase
	Steps []Variable
	By    []*Context
	From  string
	To    string

	// local paths cover only a repeat body's own steps.
	local bool
}

func (p *PathVariable) Type() VariableType { return TypeTable }

func (p *PathVariable) bind(names *nameAllocator) { bindVariable(p, names) }

// Populate projects the property on the path itself and on every step of
// the path, so each step carries it when the path is assembled.
func (p *PathVariable) Populate(property string) {
	p.variableBase.Populate(property)
	if property == ir.DefaultColumn || property == ir.PathColumn {
		return
	}
	for _, step := range p.Steps {
		step.Populate(property)
	}
}

func (p *PathVariable) tableRef() (queryir.TableRef, error) {
	name, err := p.Name()
	if err != nil {
		return nil, err
	}
	fn := "GlobalPath"
	if p.local {
		fn = "LocalPath"
	}

	var args []queryir.Scalar
	for _, step := range p.Steps {
		expr, err := reference(step)
		if err != nil {
			return nil, fmt.Errorf("%s step: %w", fn, err)
		}
		args = append(args, expr)
	}
	for i, by := range p.By {
		block, err := by.ToSelectBlock()
		if err != nil {
			return nil, fmt.Errorf("%s by %d: %w", fn, i, err)
		}
		args = append(args, queryir.ScalarSubquery{Block: block})
	}
	if p.From != "" || p.To != "" {
		args = append(args,
			queryir.Literal{Value: ir.IRString(p.From)},
			queryir.Literal{Value: ir.IRString(p.To)})
	}
	return queryir.TableFunction{Name: fn, Args: args, Alias: name, Columns: []string{ir.PathColumn}}, nil
}

// DecomposeVariable is one element of a path, seeding a by() modulator.
type DecomposeVariable struct {
	variableBase
	Path *PathVariable
}

func (d *DecomposeVariable) Type() VariableType { return TypeTable }

func (d *DecomposeVariable) bind(names *nameAllocator) { bindVariable(d, names) }

func (d *DecomposeVariable) Populate(property string) {
	d.variableBase.Populate(property)
	d.Path.Populate(property)
}

func (d *DecomposeVariable) tableRef() (queryir.TableRef, error) {
	name, err := d.Name()
	if err != nil {
		return nil, err
	}
	pathName, err := d.Path.Name()
	if err != nil {
		return nil, err
	}
	cols := []string{ir.DefaultColumn}
	for _, p := range d.projected {
		if p != ir.DefaultColumn {
			cols = append(cols, p)
		}
	}
	return queryir.TableFunction{
		Name:    "Decompose",
		Args:    []queryir.Scalar{queryir.ColumnRef{Table: pathName, Column: ir.PathColumn}},
		Alias:   name,
		Columns: cols,
	}, nil
}

// PropertyArg is one key/value pair of addV(), addE() or property().
type PropertyArg struct {
	Key   string
	Value ir.IRValue
}

func propertyArgs(props []PropertyArg) []queryir.Scalar {
	out := make([]queryir.Scalar, 0, 2*len(props))
	for _, p := range props {
		out = append(out,
			queryir.Literal{Value: ir.IRString(p.Key)},
			queryir.Literal{Value: p.Value})
	}
	return out
}
