// Package compiler translates graph traversals into relational select
// blocks and pattern graphs.
//
// A traversal is a list of steps applied in order to a Context. Each step
// adds variables (vertex, edge, function, path) and predicates, and moves
// the pivot: the variable the next step reads. Sub-traversals compile in
// child contexts whose pivot stands for the enclosing pivot.
//
//	ctx, err := compiler.Compile(compiler.T(
//		compiler.V{},
//		compiler.Out{Labels: []string{"knows"}},
//		compiler.Values{Keys: []string{"name"}},
//	))
//	block, err := ctx.ToSelectBlock()
//
// Traversals can also be written in CUE and loaded with CompileTraversal.
package compiler
