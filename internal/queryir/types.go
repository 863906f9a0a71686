package queryir

import "github.com/roach88/gview/internal/ir"

// Scalar represents a value-producing expression in the relational AST.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in renderers.
//
// Scalar types:
//   - ColumnRef: alias.column
//   - Star: alias.* (the whole element bound to alias)
//   - Literal: a constant
//   - FunctionCall: name(args...)
//   - ScalarSubquery: (SELECT ...)
type Scalar interface {
	scalarNode() // Marker method - seals interface to this package
}

// Boolean represents a search condition in the relational AST.
//
// This is a sealed interface - only types in this package implement it.
//
// Boolean types:
//   - Compare: left op right
//   - In: expr [NOT] IN (values...)
//   - And / Or: connectives (AND binds tighter than OR)
//   - Not: negation
//   - Exists: EXISTS (SELECT ...)
//   - True: the empty condition
type Boolean interface {
	booleanNode() // Marker method - seals interface to this package
}

// TableRef represents an entry of a FROM clause.
//
// This is a sealed interface - only types in this package implement it.
//
// TableRef types:
//   - NamedTable: a stored table under an alias
//   - TableFunction: a table-valued function cross-applied under an alias
type TableRef interface {
	tableNode() // Marker method - seals interface to this package
}

// ColumnRef references a column (or property) of an aliased relation.
//
//	ColumnRef{Table: "N_0", Column: "name"}  =>  N_0.name
type ColumnRef struct {
	Table  string
	Column string
}

func (ColumnRef) scalarNode() {}

// Star references the whole element bound to Table.
//
//	Star{Table: "N_0"}  =>  N_0.*
type Star struct {
	Table string
}

func (Star) scalarNode() {}

// Literal is a constant value.
type Literal struct {
	Value ir.IRValue
}

func (Literal) scalarNode() {}

// FunctionCall applies a scalar function.
//
//	FunctionCall{Name: "count", Args: []Scalar{Star{Table: "R_1"}}}  =>  count(R_1.*)
type FunctionCall struct {
	Name string
	Args []Scalar
}

func (FunctionCall) scalarNode() {}

// ScalarSubquery embeds a select block as a value.
// Table-valued function arguments are usually scalar subqueries.
type ScalarSubquery struct {
	Block *SelectBlock
}

func (ScalarSubquery) scalarNode() {}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq  CompareOp = "="
	OpNeq CompareOp = "<>"
	OpLt  CompareOp = "<"
	OpLte CompareOp = "<="
	OpGt  CompareOp = ">"
	OpGte CompareOp = ">="
)

// Compare is a binary comparison between two scalars.
type Compare struct {
	Left  Scalar
	Op    CompareOp
	Right Scalar
}

func (Compare) booleanNode() {}

// In tests membership of Expr in a literal list.
// An empty list renders as a constant false (or true when Negated).
type In struct {
	Expr    Scalar
	Values  []Scalar
	Negated bool
}

func (In) booleanNode() {}

// And is a conjunction. An empty And is vacuously true.
type And struct {
	Terms []Boolean
}

func (And) booleanNode() {}

// Or is a disjunction. An empty Or is false.
type Or struct {
	Terms []Boolean
}

func (Or) booleanNode() {}

// Not negates Expr.
type Not struct {
	Expr Boolean
}

func (Not) booleanNode() {}

// Exists is true when Block returns at least one row.
// NOT EXISTS is Not{Expr: Exists{...}}.
type Exists struct {
	Block *SelectBlock
}

func (Exists) booleanNode() {}

// True is the always-true condition.
type True struct{}

func (True) booleanNode() {}

// NamedTable is a stored relation under an alias.
//
//	NamedTable{Name: "Node", Alias: "N_0"}  =>  Node AS N_0
type NamedTable struct {
	Name  string
	Alias string
}

func (NamedTable) tableNode() {}

// TableFunction is a table-valued function cross-applied to the rows to
// its left. Columns names the projected output columns.
//
//	TableFunction{Name: "Properties", Args: ..., Alias: "S_2", Columns: []string{"name"}}
//	  =>  CROSS APPLY Properties(N_0.name) AS S_2
type TableFunction struct {
	Name    string
	Args    []Scalar
	Alias   string
	Columns []string
}

func (TableFunction) tableNode() {}

// SelectElement is one projected expression.
// Alias may be empty.
type SelectElement struct {
	Expr  Scalar
	Alias string
}

// Direction is the orientation of a match path edge.
type Direction int

const (
	Forward Direction = iota
	Backward
	Both
)

// MatchPath is one edge of a graph pattern in a MATCH clause.
//
//	MatchPath{Source: "N_0", Edge: "E_1", Sink: "N_2"}                      =>  N_0-[Edge AS E_1]->N_2
//	MatchPath{Source: "N_0", Edge: "E_1", Sink: "N_2", Direction: Backward} =>  N_0<-[Edge AS E_1]-N_2
//
// Sink is empty while the far end of the edge is unbound.
type MatchPath struct {
	Source    string
	Edge      string
	Sink      string
	Direction Direction
}

// SelectBlock is one SELECT ... FROM ... MATCH ... WHERE ... statement.
// Where may be nil.
type SelectBlock struct {
	Select []SelectElement
	From   []TableRef
	Match  []MatchPath
	Where  Boolean
}

// ConjoinAnd combines a and b with AND, flattening nested conjunctions.
// Either side may be nil.
func ConjoinAnd(a, b Boolean) Boolean {
	return conjoin(a, b, true)
}

// ConjoinOr combines a and b with OR, flattening nested disjunctions.
// Either side may be nil.
func ConjoinOr(a, b Boolean) Boolean {
	return conjoin(a, b, false)
}

func conjoin(a, b Boolean, and bool) Boolean {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	var terms []Boolean
	terms = appendTerms(terms, a, and)
	terms = appendTerms(terms, b, and)
	if and {
		return And{Terms: terms}
	}
	return Or{Terms: terms}
}

func appendTerms(terms []Boolean, e Boolean, and bool) []Boolean {
	switch v := e.(type) {
	case And:
		if and {
			return append(terms, v.Terms...)
		}
	case *And:
		if and {
			return append(terms, v.Terms...)
		}
	case Or:
		if !and {
			return append(terms, v.Terms...)
		}
	case *Or:
		if !and {
			return append(terms, v.Terms...)
		}
	}
	return append(terms, e)
}

// Aliases returns every table alias a boolean expression references,
// including references from inside subqueries, in first-seen order.
func Aliases(e Boolean) []string {
	c := &aliasCollector{seen: map[string]bool{}}
	c.boolean(e)
	return c.out
}

// NestedBindings returns the aliases bound by the sub-queries nested in e:
// table-function aliases in funcs, stored tables and match edges in tables.
func NestedBindings(e Boolean) (funcs, tables []string) {
	c := &aliasCollector{seen: map[string]bool{}}
	c.boolean(e)
	return c.funcs, c.tables
}

type aliasCollector struct {
	seen map[string]bool
	out  []string

	funcs  []string
	tables []string
}

func (c *aliasCollector) add(alias string) {
	if alias == "" || c.seen[alias] {
		return
	}
	c.seen[alias] = true
	c.out = append(c.out, alias)
}

func (c *aliasCollector) boolean(e Boolean) {
	switch v := e.(type) {
	case Compare:
		c.scalar(v.Left)
		c.scalar(v.Right)
	case *Compare:
		c.boolean(*v)
	case In:
		c.scalar(v.Expr)
		for _, s := range v.Values {
			c.scalar(s)
		}
	case *In:
		c.boolean(*v)
	case And:
		for _, t := range v.Terms {
			c.boolean(t)
		}
	case *And:
		c.boolean(*v)
	case Or:
		for _, t := range v.Terms {
			c.boolean(t)
		}
	case *Or:
		c.boolean(*v)
	case Not:
		c.boolean(v.Expr)
	case *Not:
		c.boolean(*v)
	case Exists:
		c.block(v.Block)
	case *Exists:
		c.block(v.Block)
	}
}

func (c *aliasCollector) scalar(s Scalar) {
	switch v := s.(type) {
	case ColumnRef:
		c.add(v.Table)
	case *ColumnRef:
		c.add(v.Table)
	case Star:
		c.add(v.Table)
	case *Star:
		c.add(v.Table)
	case FunctionCall:
		for _, a := range v.Args {
			c.scalar(a)
		}
	case *FunctionCall:
		c.scalar(*v)
	case ScalarSubquery:
		c.block(v.Block)
	case *ScalarSubquery:
		c.block(v.Block)
	}
}

func (c *aliasCollector) block(b *SelectBlock) {
	if b == nil {
		return
	}
	for _, el := range b.Select {
		c.scalar(el.Expr)
	}
	for _, ref := range b.From {
		switch r := ref.(type) {
		case TableFunction:
			c.funcs = append(c.funcs, r.Alias)
			for _, a := range r.Args {
				c.scalar(a)
			}
		case NamedTable:
			c.tables = append(c.tables, r.Alias)
		}
	}
	for _, m := range b.Match {
		c.tables = append(c.tables, m.Edge)
	}
	if b.Where != nil {
		c.boolean(b.Where)
	}
}
