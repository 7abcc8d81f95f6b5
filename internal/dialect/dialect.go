// Package dialect defines the interface an out-of-core "parcel-based"
// protocol C translator implements: something that rewrites client SQL
// text into the grammar the core parser understands before it ever
// reaches internal/parseradapter. The core never imports an
// implementation of this interface itself, only the interface — the
// same separation matrixone keeps between its frontend's own grammar
// and the BI-tool dialect rewrites in dialect_compatibility_util.go,
// which run ahead of parsing rather than inside it.
package dialect

// Rewriter rewrites one statement's raw SQL text into the core grammar.
// Implementations must be safe to call with text that needs no rewrite
// at all; returning the input unchanged is always a valid Rewrite.
type Rewriter interface {
	Rewrite(sql string) (string, error)
}
