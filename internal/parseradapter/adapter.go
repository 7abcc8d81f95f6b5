// Package parseradapter is the sole caller of internal/sqlparse, and the
// only package the executor (internal/engine) imports for turning SQL
// text into an AST. Keeping the two separated means the executor never
// depends on the scanner/grammar directly, mirroring MatrixOne's own
// pkg/frontend -> pkg/sql/parsers boundary (cmd_executor.go never touches
// the yacc-generated scanner types itself).
package parseradapter

import (
	"context"

	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlparse"
)

// Parse splits sql on top-level statement boundaries and parses each one,
// translating any scanner/grammar error into a ParseError.
func Parse(ctx context.Context, sql string) ([]sqlast.Statement, error) {
	stmts, err := sqlparse.ParseStatements(sql)
	if err != nil {
		return nil, errs.NewParseError(ctx, "%s", err.Error())
	}
	return stmts, nil
}

// ParseOne parses a single statement, failing if the text contains more
// than one (used by the extended-query Parse step of protocol A, which
// binds exactly one prepared statement per name).
func ParseOne(ctx context.Context, sql string) (sqlast.Statement, error) {
	stmt, err := sqlparse.ParseOne(sql)
	if err != nil {
		return nil, errs.NewParseError(ctx, "%s", err.Error())
	}
	return stmt, nil
}
