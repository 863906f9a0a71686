package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/gview/internal/ir"
	"github.com/roach88/gview/internal/predicate"
)

// CompileTraversal parses a traversal written in CUE. The value is the
// traversal struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`traversal: knows: steps: [{op: "V"}, {op: "out", labels: ["knows"]}]`)
//	t, err := CompileTraversal(v.LookupPath(cue.ParsePath("traversal.knows")))
//
// Nested traversals are step lists under traversal, traversals, by, body,
// until, emit, condition, then, else, choice, from and to.
func CompileTraversal(v cue.Value) (Traversal, error) {
	if err := v.Err(); err != nil {
		return Traversal{}, formatCUEError(err)
	}
	stepsVal := v.LookupPath(cue.ParsePath("steps"))
	if !stepsVal.Exists() {
		return Traversal{}, &CompileError{
			Code:    ErrCodeSyntax,
			Field:   "steps",
			Message: "steps is required",
			Pos:     v.Pos(),
		}
	}
	return parseSteps(stepsVal)
}

func parseSteps(v cue.Value) (Traversal, error) {
	iter, err := v.List()
	if err != nil {
		return Traversal{}, formatCUEError(err)
	}
	var t Traversal
	for iter.Next() {
		step, err := parseStep(iter.Value())
		if err != nil {
			return Traversal{}, err
		}
		t.Steps = append(t.Steps, step)
	}
	return t, nil
}

func parseStep(v cue.Value) (Step, error) {
	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return nil, &CompileError{Code: ErrCodeSyntax, Field: "op", Message: "op is required", Pos: v.Pos()}
	}
	op, err := opVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	parse, ok := stepParsers[op]
	if !ok {
		return nil, &CompileError{
			Code:    ErrCodeSyntax,
			Field:   "op",
			Message: fmt.Sprintf("unknown step %q", op),
			Pos:     opVal.Pos(),
		}
	}

	r := &stepReader{v: v}
	step := parse(r)
	if r.err != nil {
		return nil, r.err
	}
	return step, nil
}

var stepParsers map[string]func(r *stepReader) Step

func init() {
	stepParsers = map[string]func(r *stepReader) Step{
		"V":      func(r *stepReader) Step { return V{IDs: r.values("ids")} },
		"E":      func(r *stepReader) Step { return E{IDs: r.values("ids")} },
		"inject": func(r *stepReader) Step { return Inject{Values: r.values("values")} },
		"addV": func(r *stepReader) Step {
			return AddV{ID: r.str("id"), Label: r.str("label"), Properties: r.props("properties")}
		},

		"out":    func(r *stepReader) Step { return Out{Labels: r.strs("labels")} },
		"in":     func(r *stepReader) Step { return In{Labels: r.strs("labels")} },
		"both":   func(r *stepReader) Step { return Both{Labels: r.strs("labels")} },
		"outE":   func(r *stepReader) Step { return OutE{Labels: r.strs("labels")} },
		"inE":    func(r *stepReader) Step { return InE{Labels: r.strs("labels")} },
		"bothE":  func(r *stepReader) Step { return BothE{Labels: r.strs("labels")} },
		"outV":   func(*stepReader) Step { return OutV{} },
		"inV":    func(*stepReader) Step { return InV{} },
		"bothV":  func(*stepReader) Step { return BothV{} },
		"otherV": func(*stepReader) Step { return OtherV{} },

		"has": func(r *stepReader) Step {
			return Has{Label: r.str("label"), Key: r.str("key"), Value: r.predicateOrValue()}
		},
		"hasNot":   func(r *stepReader) Step { return HasNot{Key: r.str("key")} },
		"hasId":    func(r *stepReader) Step { return HasID{Values: r.predicateOrValues()} },
		"hasLabel": func(r *stepReader) Step { return HasLabel{Values: r.predicateOrValues()} },
		"hasKey":   func(r *stepReader) Step { return HasKey{Values: r.predicateOrValues()} },
		"hasValue": func(r *stepReader) Step { return HasValue{Values: r.predicateOrValues()} },
		"is":       func(r *stepReader) Step { return Is{Value: r.predicateOrValue()} },
		"where": func(r *stepReader) Step {
			return Where{
				StartKey:  r.str("startKey"),
				Predicate: r.predicate("predicate"),
				Traversal: r.traversal("traversal"),
				By:        r.traversals("by"),
			}
		},
		"and": func(r *stepReader) Step { return And{Traversals: r.traversals("traversals")} },
		"or":  func(r *stepReader) Step { return Or{Traversals: r.traversals("traversals")} },
		"not": func(r *stepReader) Step { return Not{Traversal: r.requiredTraversal("traversal")} },
		"dedup": func(r *stepReader) Step {
			return Dedup{Labels: r.strs("labels"), By: r.firstBy(), Scope: r.scope()}
		},
		"range": func(r *stepReader) Step {
			return Range{Low: r.integer("low"), High: r.integer("high"), Scope: r.scope(), FromEnd: r.boolean("fromEnd")}
		},
		"limit":      func(r *stepReader) Step { return Limit{N: r.integer("n"), Scope: r.scope()} },
		"skip":       func(r *stepReader) Step { return Skip{N: r.integer("n"), Scope: r.scope()} },
		"tail":       func(r *stepReader) Step { return Tail{N: r.integer("n"), Scope: r.scope()} },
		"coin":       func(r *stepReader) Step { return Coin{Probability: r.float("probability")} },
		"sample":     func(r *stepReader) Step { return Sample{N: r.integer("n"), Scope: r.scope()} },
		"simplePath": func(r *stepReader) Step { return SimplePath{From: r.str("from"), To: r.str("to")} },
		"cyclicPath": func(r *stepReader) Step { return CyclicPath{From: r.str("from"), To: r.str("to")} },
		"timeLimit":  func(r *stepReader) Step { return TimeLimit{Millis: r.integer("millis")} },

		"values":     func(r *stepReader) Step { return Values{Keys: r.strs("keys")} },
		"properties": func(r *stepReader) Step { return Properties{Keys: r.strs("keys")} },
		"valueMap": func(r *stepReader) Step {
			return ValueMap{Keys: r.strs("keys"), IncludeTokens: r.boolean("tokens")}
		},
		"propertyMap": func(r *stepReader) Step { return PropertyMap{Keys: r.strs("keys")} },
		"id":          func(*stepReader) Step { return ID{} },
		"label":       func(*stepReader) Step { return Label{} },
		"key":         func(*stepReader) Step { return Key{} },
		"value":       func(*stepReader) Step { return Value{} },
		"constant":    func(r *stepReader) Step { return Constant{Value: r.value("value")} },
		"project":     func(r *stepReader) Step { return Project{Keys: r.strs("keys"), By: r.traversals("by")} },
		"select": func(r *stepReader) Step {
			if col := r.str("column"); col != "" {
				return SelectColumn{Column: Column(col)}
			}
			return Select{Pop: Pop(r.str("pop")), Keys: r.strs("keys"), By: r.traversals("by")}
		},
		"path": func(r *stepReader) Step {
			return Path{By: r.traversals("by"), From: r.str("from"), To: r.str("to")}
		},
		"map":     func(r *stepReader) Step { return Map{Traversal: r.requiredTraversal("traversal")} },
		"flatMap": func(r *stepReader) Step { return FlatMap{Traversal: r.requiredTraversal("traversal")} },
		"unfold":  func(*stepReader) Step { return Unfold{} },

		"count": func(r *stepReader) Step { return Count{Scope: r.scope()} },
		"sum":   func(r *stepReader) Step { return Sum{Scope: r.scope()} },
		"min":   func(r *stepReader) Step { return Min{Scope: r.scope()} },
		"max":   func(r *stepReader) Step { return Max{Scope: r.scope()} },
		"mean":  func(r *stepReader) Step { return Mean{Scope: r.scope()} },
		"fold":  func(*stepReader) Step { return Fold{} },
		"group": func(r *stepReader) Step {
			return Group{SideEffectKey: r.str("sideEffect"), KeyBy: r.traversal("keyBy"), ValueBy: r.traversal("valueBy")}
		},
		"groupCount": func(r *stepReader) Step {
			return GroupCount{SideEffectKey: r.str("sideEffect"), By: r.firstBy()}
		},
		"tree": func(r *stepReader) Step {
			return Tree{SideEffectKey: r.str("sideEffect"), By: r.traversals("by")}
		},
		"order": func(r *stepReader) Step { return Order{By: r.orderBy(), Scope: r.scope()} },

		"union":    func(r *stepReader) Step { return Union{Traversals: r.traversals("traversals")} },
		"coalesce": func(r *stepReader) Step { return Coalesce{Traversals: r.traversals("traversals")} },
		"optional": func(r *stepReader) Step { return Optional{Traversal: r.requiredTraversal("traversal")} },
		"choose": func(r *stepReader) Step {
			return Choose{
				Condition: r.traversal("condition"),
				Then:      r.traversal("then"),
				Else:      r.traversal("else"),
				Choice:    r.traversal("choice"),
				Options:   r.options(),
			}
		},
		"local": func(r *stepReader) Step { return Local{Traversal: r.requiredTraversal("traversal")} },
		"repeat": func(r *stepReader) Step {
			s := Repeat{
				Body:       r.requiredTraversal("body"),
				Until:      r.traversal("until"),
				Times:      int(r.integer("times")),
				UntilFirst: r.boolean("untilFirst"),
				EmitFirst:  r.boolean("emitFirst"),
			}
			if r.kind("emit") == cue.BoolKind {
				s.EmitAll = r.boolean("emit")
			} else {
				s.Emit = r.traversal("emit")
			}
			return s
		},

		"as":        func(r *stepReader) Step { return As{Labels: r.strs("labels")} },
		"identity":  func(*stepReader) Step { return Identity{} },
		"aggregate": func(r *stepReader) Step { return Aggregate{Key: r.str("key"), By: r.firstBy()} },
		"store":     func(r *stepReader) Step { return Store{Key: r.str("key"), By: r.firstBy()} },
		"cap":       func(r *stepReader) Step { return Cap{Keys: r.strs("keys")} },
		"sideEffect": func(r *stepReader) Step {
			return SideEffect{Traversal: r.requiredTraversal("traversal")}
		},
		"subgraph": func(r *stepReader) Step { return Subgraph{Key: r.str("key")} },
		"barrier":  func(r *stepReader) Step { return Barrier{Max: int(r.integer("max"))} },
		"property": func(r *stepReader) Step {
			return Property{
				Key:            r.str("key"),
				Value:          r.value("value"),
				Cardinality:    r.str("cardinality"),
				MetaProperties: r.props("meta"),
			}
		},
		"addE": func(r *stepReader) Step {
			return AddE{Label: r.str("label"), From: r.traversal("from"), To: r.traversal("to"), Properties: r.props("properties")}
		},
		"drop": func(*stepReader) Step { return Drop{} },
	}
}

// stepReader reads optional step fields, keeping the first error.
type stepReader struct {
	v   cue.Value
	err error
}

func (r *stepReader) lookup(name string) (cue.Value, bool) {
	if r.err != nil {
		return cue.Value{}, false
	}
	f := r.v.LookupPath(cue.ParsePath(name))
	return f, f.Exists()
}

func (r *stepReader) fail(err error) {
	if r.err != nil {
		return
	}
	if IsCompileError(err) {
		r.err = err
		return
	}
	r.err = formatCUEError(err)
}

func (r *stepReader) failf(field string, pos cue.Value, format string, args ...any) {
	if r.err == nil {
		r.err = &CompileError{
			Code:    ErrCodeSyntax,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
			Pos:     pos.Pos(),
		}
	}
}

func (r *stepReader) kind(name string) cue.Kind {
	f, ok := r.lookup(name)
	if !ok {
		return cue.BottomKind
	}
	return f.Kind()
}

func (r *stepReader) str(name string) string {
	f, ok := r.lookup(name)
	if !ok {
		return ""
	}
	s, err := f.String()
	if err != nil {
		r.fail(err)
	}
	return s
}

func (r *stepReader) strs(name string) []string {
	f, ok := r.lookup(name)
	if !ok {
		return nil
	}
	if s, err := f.String(); err == nil {
		return []string{s}
	}
	iter, err := f.List()
	if err != nil {
		r.fail(err)
		return nil
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			r.fail(err)
			return nil
		}
		out = append(out, s)
	}
	return out
}

func (r *stepReader) integer(name string) int64 {
	f, ok := r.lookup(name)
	if !ok {
		return 0
	}
	n, err := f.Int64()
	if err != nil {
		r.fail(err)
	}
	return n
}

func (r *stepReader) float(name string) float64 {
	f, ok := r.lookup(name)
	if !ok {
		return 0
	}
	x, err := f.Float64()
	if err != nil {
		r.fail(err)
	}
	return x
}

func (r *stepReader) boolean(name string) bool {
	f, ok := r.lookup(name)
	if !ok {
		return false
	}
	b, err := f.Bool()
	if err != nil {
		r.fail(err)
	}
	return b
}

func (r *stepReader) scope() Scope {
	switch s := r.str("scope"); s {
	case "", "global":
		return ScopeGlobal
	case "local":
		return ScopeLocal
	default:
		f, _ := r.lookup("scope")
		r.failf("scope", f, "unknown scope %q", s)
		return ScopeGlobal
	}
}

// value returns the field as an ir.IRValue, or nil when absent.
func (r *stepReader) value(name string) any {
	f, ok := r.lookup(name)
	if !ok {
		return nil
	}
	v, err := cueValue(f)
	if err != nil {
		r.fail(err)
		return nil
	}
	return v
}

func (r *stepReader) values(name string) []any {
	f, ok := r.lookup(name)
	if !ok {
		return nil
	}
	if f.Kind() != cue.ListKind {
		return []any{r.value(name)}
	}
	iter, err := f.List()
	if err != nil {
		r.fail(err)
		return nil
	}
	var out []any
	for iter.Next() {
		v, err := cueValue(iter.Value())
		if err != nil {
			r.fail(err)
			return nil
		}
		out = append(out, v)
	}
	return out
}

// predicateOrValue returns the predicate field when present, else value.
func (r *stepReader) predicateOrValue() any {
	if p := r.predicate("predicate"); p != nil {
		return *p
	}
	return r.value("value")
}

func (r *stepReader) predicateOrValues() []any {
	if p := r.predicate("predicate"); p != nil {
		return []any{*p}
	}
	return r.values("values")
}

func (r *stepReader) predicate(name string) *predicate.P {
	f, ok := r.lookup(name)
	if !ok {
		return nil
	}
	p, err := cuePredicate(f)
	if err != nil {
		r.fail(err)
		return nil
	}
	return &p
}

func (r *stepReader) traversal(name string) *Traversal {
	f, ok := r.lookup(name)
	if !ok {
		return nil
	}
	t, err := parseSteps(f)
	if err != nil {
		r.fail(err)
		return nil
	}
	return &t
}

func (r *stepReader) requiredTraversal(name string) Traversal {
	t := r.traversal(name)
	if t == nil {
		r.failf(name, r.v, "%s is required", name)
		return Traversal{}
	}
	return *t
}

func (r *stepReader) traversals(name string) []Traversal {
	f, ok := r.lookup(name)
	if !ok {
		return nil
	}
	iter, err := f.List()
	if err != nil {
		r.fail(err)
		return nil
	}
	var out []Traversal
	for iter.Next() {
		t, err := parseSteps(iter.Value())
		if err != nil {
			r.fail(err)
			return nil
		}
		out = append(out, t)
	}
	return out
}

func (r *stepReader) firstBy() *Traversal {
	by := r.traversals("by")
	if len(by) == 0 {
		return nil
	}
	return &by[0]
}

// orderBy pairs by traversals with the orders list (asc by default).
func (r *stepReader) orderBy() []OrderBy {
	by := r.traversals("by")
	orders := r.strs("orders")
	if len(orders) > len(by) {
		for len(by) < len(orders) {
			by = append(by, Traversal{})
		}
	}
	out := make([]OrderBy, len(by))
	for i, t := range by {
		out[i].Traversal = t
		if i < len(orders) {
			out[i].Order = orders[i]
		}
	}
	return out
}

func (r *stepReader) options() []ChooseOption {
	f, ok := r.lookup("options")
	if !ok {
		return nil
	}
	iter, err := f.List()
	if err != nil {
		r.fail(err)
		return nil
	}
	var out []ChooseOption
	for iter.Next() {
		or := &stepReader{v: iter.Value()}
		opt := ChooseOption{Key: or.value("key"), Traversal: or.requiredTraversal("traversal")}
		if or.err != nil {
			r.fail(or.err)
			return nil
		}
		out = append(out, opt)
	}
	return out
}

func (r *stepReader) props(name string) []PropertyArg {
	f, ok := r.lookup(name)
	if !ok {
		return nil
	}
	iter, err := f.Fields()
	if err != nil {
		r.fail(err)
		return nil
	}
	var out []PropertyArg
	for iter.Next() {
		v, err := cueValue(iter.Value())
		if err != nil {
			r.fail(err)
			return nil
		}
		out = append(out, PropertyArg{Key: iter.Label(), Value: v})
	}
	return out
}

// cuePredicate reads {op: "gt", value: 30}, {op: "within", values: [...]}
// or {op: "and", terms: [...]}.
func cuePredicate(v cue.Value) (predicate.P, error) {
	r := &stepReader{v: v}
	opName := r.str("op")
	if r.err != nil {
		return predicate.P{}, r.err
	}
	op, err := predicate.ParseOp(opName)
	if err != nil {
		return predicate.P{}, &CompileError{Code: ErrCodeSyntax, Field: "predicate", Message: err.Error(), Pos: v.Pos()}
	}
	p := predicate.P{Op: op}

	if p.IsComposite() {
		f, _ := r.lookup("terms")
		iter, err := f.List()
		if err != nil {
			return predicate.P{}, formatCUEError(err)
		}
		for iter.Next() {
			term, err := cuePredicate(iter.Value())
			if err != nil {
				return predicate.P{}, err
			}
			p.Terms = append(p.Terms, term)
		}
	} else {
		vals := r.values("values")
		if val := r.value("value"); val != nil {
			vals = append(vals, val)
		}
		if r.err != nil {
			return predicate.P{}, r.err
		}
		for _, val := range vals {
			p.Values = append(p.Values, val.(ir.IRValue))
		}
	}

	if err := p.Validate(); err != nil {
		return predicate.P{}, &CompileError{Code: ErrCodeSyntax, Field: "predicate", Message: err.Error(), Pos: v.Pos()}
	}
	return p, nil
}

// cueValue converts a concrete CUE value to an IRValue.
func cueValue(v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		return ir.IRBool(b), err
	case cue.IntKind:
		n, err := v.Int64()
		return ir.IRInt(n), err
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		return ir.IRFloat(f), err
	case cue.StringKind:
		s, err := v.String()
		return ir.IRString(s), err
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, err
		}
		arr := ir.IRArray{}
		for iter.Next() {
			elem, err := cueValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, err
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := cueValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Code:    ErrCodeSyntax,
			Field:   "value",
			Message: fmt.Sprintf("value is not concrete (kind %v)", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
