// Package selrewrite is a reference dialect.Rewriter: a hypothetical
// client that speaks a "SEL ... " shorthand for "SELECT ...", rewritten
// ahead of parsing exactly the way dialect_compatibility_util.go's
// regex-driven rewrites run on the raw SQL text before the statement
// ever reaches the grammar. Nothing under internal/server or
// internal/engine references this package; it exists to exercise the
// dialect.Rewriter interface from tests only, honoring the Non-goal
// that keeps protocol C out of core.
package selrewrite

import "regexp"

var selKeyword = regexp.MustCompile(`(?i)^\s*SEL\b`)

// Rewriter rewrites a leading "SEL" keyword to "SELECT", leaving
// anything else (including a statement that already says SELECT)
// untouched.
type Rewriter struct{}

func (Rewriter) Rewrite(sql string) (string, error) {
	return selKeyword.ReplaceAllStringFunc(sql, func(string) string { return "SELECT" }), nil
}
