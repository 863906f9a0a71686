// Package queryir provides the relational abstract syntax tree that
// compiled traversals are expressed in.
//
// ARCHITECTURE:
//
//	[traversal steps] → [query context] → [relational AST] → [query text]
//
// The compiler builds SelectBlocks; querysql renders them, and also
// derives the flat select/join/where clause shape each backend dialect
// executes.
//
// SEALED INTERFACES:
//
// Scalar, Boolean and TableRef are sealed with marker methods, so renderers
// can switch exhaustively:
//
//	switch e := expr.(type) {
//	case queryir.Compare:
//	case queryir.And:
//	...
//	}
//
// PRECEDENCE:
//
// AND binds tighter than OR. The tree carries the grouping explicitly; the
// renderer parenthesises an Or nested inside an And, and never needs to
// parenthesise an And nested inside an Or.
package queryir
