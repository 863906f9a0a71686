package queryir

import (
	"fmt"

	"github.com/roach88/gview/internal/ir"
)

// ValidationResult contains portability analysis of a select block.
//
// The portable fragment is the subset of the AST that both emitter dialects
// can express. The document-traversal dialect has no join clause, so
// anything that needs a server-side join falls outside it.
type ValidationResult struct {
	// IsPortable indicates the block uses only portable constructs.
	IsPortable bool

	// Warnings lists non-portable constructs. Empty when IsPortable is true.
	Warnings []string
}

// Validate checks a block against the portable fragment.
//
// Portable fragment rules:
//  1. No table-valued functions (CROSS APPLY needs a join clause)
//  2. No variable-length match paths
//  3. No comparisons against NULL
//  4. At least one projected element
//
// Non-portable blocks still emit correctly for the SQL-like dialect.
// Validate is a pure function with no side effects.
func Validate(block *SelectBlock) ValidationResult {
	v := &validator{warnings: []string{}}
	v.validateBlock(block, 0)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateBlock(b *SelectBlock, depth int) {
	if b == nil {
		v.addWarning("nil select block at depth %d", depth)
		return
	}
	if len(b.Select) == 0 {
		v.addWarning("select block at depth %d projects nothing", depth)
	}
	for _, el := range b.Select {
		v.validateScalar(el.Expr, depth)
	}
	for _, ref := range b.From {
		switch t := ref.(type) {
		case TableFunction:
			v.addWarning("table function %s AS %s requires a join clause", t.Name, t.Alias)
			for _, a := range t.Args {
				v.validateScalar(a, depth)
			}
		case NamedTable:
		default:
			v.addWarning("unknown table reference %T", ref)
		}
	}
	if b.Where != nil {
		v.validateBoolean(b.Where, depth)
	}
}

func (v *validator) validateScalar(s Scalar, depth int) {
	switch e := s.(type) {
	case ScalarSubquery:
		v.validateBlock(e.Block, depth+1)
	case FunctionCall:
		for _, a := range e.Args {
			v.validateScalar(a, depth)
		}
	}
}

func (v *validator) validateBoolean(e Boolean, depth int) {
	switch b := e.(type) {
	case Compare:
		if isNull(b.Left) || isNull(b.Right) {
			v.addWarning("comparison %s against NULL never matches", b.Op)
		}
		v.validateScalar(b.Left, depth)
		v.validateScalar(b.Right, depth)
	case In:
		v.validateScalar(b.Expr, depth)
	case And:
		for _, t := range b.Terms {
			v.validateBoolean(t, depth)
		}
	case Or:
		for _, t := range b.Terms {
			v.validateBoolean(t, depth)
		}
	case Not:
		v.validateBoolean(b.Expr, depth)
	case Exists:
		v.validateBlock(b.Block, depth+1)
	case True:
	default:
		v.addWarning("unknown boolean expression %T", e)
	}
}

func isNull(s Scalar) bool {
	lit, ok := s.(Literal)
	if !ok {
		return false
	}
	switch lit.Value.(type) {
	case nil, ir.IRNull:
		return true
	}
	return false
}
