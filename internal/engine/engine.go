// Package engine is the query executor: the heart of the pipeline
// described in the query executor design, from WITH-clause resolution
// down through DISTINCT/ORDER BY/LIMIT. It is the sole implementation of
// expr.SubqueryRunner, so every scalar/IN/EXISTS subquery the expression
// evaluator encounters recurses back into this package's own pipeline.
package engine

import (
	"context"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/parseradapter"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// Result is the schema plus row sequence returned by a top-level query,
// handed to the row codec for on-wire encoding.
type Result struct {
	Columns []catalog.Column
	Rows    []catalog.Row
}

// ExecResult is the outcome of any one statement, query or otherwise.
// Tag is the command-complete/command-tag string each protocol attaches
// to its non-row response (e.g. "SELECT", "BEGIN", "SET").
type ExecResult struct {
	IsQuery bool
	Columns []catalog.Column
	Rows    []catalog.Row
	Tag     string
}

// Execute dispatches any supported statement kind, including the
// transaction/SET no-ops and the explicit "not implemented" path for
// statements the grammar recognizes but the engine's Non-goals exclude.
func (ex *Executor) Execute(ctx context.Context, stmt sqlast.Statement) (*ExecResult, error) {
	return ex.ExecuteParams(ctx, stmt, nil)
}

// ExecuteParams is Execute with bound extended-query-protocol parameter
// values in scope for any `$N` placeholder the statement's expressions
// reference.
func (ex *Executor) ExecuteParams(ctx context.Context, stmt sqlast.Statement, params []sqlval.Value) (*ExecResult, error) {
	switch n := stmt.(type) {
	case *sqlast.SelectStatement:
		res, err := ex.executeSelectParams(ctx, n, params)
		if err != nil {
			return nil, err
		}
		return &ExecResult{IsQuery: true, Columns: res.Columns, Rows: res.Rows, Tag: "SELECT"}, nil
	case *sqlast.TransactionStmt:
		return &ExecResult{Tag: n.Kind}, nil
	case *sqlast.SetStmt:
		return &ExecResult{Tag: "SET"}, nil
	case *sqlast.UnknownStmt:
		return nil, errs.NewFeatureError(ctx, "statement not supported: %s", n.Keyword)
	default:
		return nil, errs.NewFeatureError(ctx, "unsupported statement %T", stmt)
	}
}

// Executor runs sqlast.Statement trees against a single database
// snapshot. It carries no per-query mutable state of its own; everything
// query-scoped (CTE map, subquery memo) lives in the expr.Env threaded
// through the recursive calls, so one Executor is safe to share across
// concurrently running connections.
type Executor struct {
	DB *catalog.Database
}

// New builds an Executor bound to one immutable snapshot, obtained from
// the store once per query per the in-memory store design.
func New(db *catalog.Database) *Executor {
	return &Executor{DB: db}
}

// ExecuteSelect is the entry point for a SELECT statement, honoring the
// asynchronous contract named in the design: correlated subqueries may
// recurse into RunQuery without blocking, since everything here is plain
// synchronous Go and a goroutine-per-connection scheduler (the
// supervisor) already keeps one connection's work off of the others.
func (ex *Executor) ExecuteSelect(ctx context.Context, stmt *sqlast.SelectStatement) (*Result, error) {
	return ex.executeSelectParams(ctx, stmt, nil)
}

func (ex *Executor) executeSelectParams(ctx context.Context, stmt *sqlast.SelectStatement, params []sqlval.Value) (*Result, error) {
	env := &expr.Env{Ctx: ctx, DB: ex.DB, Runner: ex, Params: params}
	rel, err := ex.runSelectStatement(env, stmt)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: rel.Columns, Rows: rel.Rows}, nil
}

// DescribeColumns answers protocol A's "Describe of an unbound
// statement" step: the output row shape a SELECT would produce, inferred
// by running it with every `$N` placeholder bound to SQL NULL rather
// than requiring a prior Bind. Null propagation means this never fails
// on account of the placeholders themselves; it can still fail for the
// ordinary reasons (unknown table/column) a real Execute would.
func (ex *Executor) DescribeColumns(ctx context.Context, stmt *sqlast.SelectStatement) ([]catalog.Column, error) {
	params := make([]sqlval.Value, parseradapter.ParamCount(stmt))
	for i := range params {
		params[i] = sqlval.Null()
	}
	res, err := ex.executeSelectParams(ctx, stmt, params)
	if err != nil {
		return nil, err
	}
	return res.Columns, nil
}

// RunQuery implements expr.SubqueryRunner for the expression evaluator's
// subquery positions (scalar, IN, EXISTS). The env passed in is already
// the correct child env (outer row chain set up by expr.Env.Child).
func (ex *Executor) RunQuery(ctx context.Context, query *sqlast.SelectStatement, env *expr.Env) (*expr.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.NewCancellationError(ctx)
	}
	return ex.runSelectStatement(env, query)
}

// runSelectStatement is the pipeline named in the executor design: CTE
// resolution, then set-operation or plain-select body evaluation, then
// the statement-level ORDER BY/LIMIT that binds across either shape.
func (ex *Executor) runSelectStatement(env *expr.Env, stmt *sqlast.SelectStatement) (*expr.Relation, error) {
	childEnv := env
	if stmt.With != nil {
		var err error
		childEnv, err = ex.resolveCTEs(env, stmt.With)
		if err != nil {
			return nil, err
		}
	}
	// A plain SelectClause body runs its ORDER BY/LIMIT inside the same
	// pipeline pass, since sort keys there may reference source columns
	// or per-row aggregate/window values that no longer exist once the
	// body has been reduced to a plain Relation.
	if sc, ok := stmt.Body.(*sqlast.SelectClause); ok {
		return ex.runSelectClauseFull(childEnv, sc, stmt.OrderBy, stmt.Limit)
	}
	rel, err := ex.runSelectBody(childEnv, stmt.Body)
	if err != nil {
		return nil, err
	}
	return applyOrderLimit(childEnv, rel, stmt.OrderBy, stmt.Limit)
}

func (ex *Executor) runSelectBody(env *expr.Env, body sqlast.SelectBody) (*expr.Relation, error) {
	switch b := body.(type) {
	case *sqlast.SelectClause:
		return ex.runSelectClause(env, b)
	case *sqlast.SetOpClause:
		return ex.runSetOp(env, b)
	case *sqlast.SubSelectBody:
		return ex.runSelectStatement(env, b.Stmt)
	default:
		return nil, errs.NewFeatureError(env.Ctx, "unsupported select body %T", body)
	}
}
