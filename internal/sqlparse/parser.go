package sqlparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/memsqld/memsqld/internal/sqlast"
)

// Parser is a straight-line recursive-descent parser over a pre-scanned
// token stream, operator precedence handled by a small cascade of
// parseX -> parseY methods.
type Parser struct {
	toks []Token
	pos  int
	// qmark counts `?` placeholders seen so far, assigning each the next
	// positional index; `$N` markers carry their own explicit index and
	// never consume from this counter.
	qmark int
}

func New(src string) (*Parser, error) {
	toks, err := NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}
	return &Parser{toks: toks}, nil
}

// ParseStatements splits on top-level ';' and parses each statement.
func ParseStatements(src string) ([]sqlast.Statement, error) {
	p, err := New(src)
	if err != nil {
		return nil, err
	}
	var stmts []sqlast.Statement
	for {
		p.skipSemis()
		if p.cur().Kind == TokEOF {
			return stmts, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.cur().Kind == TokPunct && p.cur().Text == ";" {
			p.next()
		} else if p.cur().Kind != TokEOF {
			return nil, fmt.Errorf("expected ';' or end of input, got %q", p.cur().Text)
		}
	}
}

// ParseOne parses exactly one statement, failing if more than one is present.
func ParseOne(src string) (sqlast.Statement, error) {
	stmts, err := ParseStatements(src)
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, fmt.Errorf("expected exactly one statement, got %d", len(stmts))
	}
	return stmts[0], nil
}

func (p *Parser) skipSemis() {
	for p.cur().Kind == TokPunct && p.cur().Text == ";" {
		p.next()
	}
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.toks) {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) next() Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) kw(word string) bool {
	return p.cur().Kind == TokIdent && strings.EqualFold(p.cur().Text, word)
}

func (p *Parser) kwAt(off int, word string) bool {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return false
	}
	t := p.toks[idx]
	return t.Kind == TokIdent && strings.EqualFold(t.Text, word)
}

func (p *Parser) eatKw(word string) bool {
	if p.kw(word) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expectKw(word string) error {
	if !p.eatKw(word) {
		return fmt.Errorf("expected keyword %s, got %q", word, p.cur().Text)
	}
	return nil
}

func (p *Parser) punct(s string) bool {
	return p.cur().Kind == TokPunct && p.cur().Text == s
}

func (p *Parser) eatPunct(s string) bool {
	if p.punct(s) {
		p.next()
		return true
	}
	return false
}

func (p *Parser) expectPunct(s string) error {
	if !p.eatPunct(s) {
		return fmt.Errorf("expected %q, got %q", s, p.cur().Text)
	}
	return nil
}

// --- statement level ---

func (p *Parser) parseStatement() (sqlast.Statement, error) {
	switch {
	case p.kw("WITH"), p.kw("SELECT"), p.punct("("):
		return p.parseSelectStatement()
	case p.kw("BEGIN"):
		p.next()
		consumeOptional(p, "TRANSACTION")
		return &sqlast.TransactionStmt{Kind: "BEGIN"}, nil
	case p.kw("START"):
		p.next()
		_ = p.eatKw("TRANSACTION")
		return &sqlast.TransactionStmt{Kind: "BEGIN"}, nil
	case p.kw("COMMIT"):
		p.next()
		_ = p.eatKw("TRANSACTION") || p.eatKw("WORK")
		return &sqlast.TransactionStmt{Kind: "COMMIT"}, nil
	case p.kw("ROLLBACK"):
		p.next()
		_ = p.eatKw("TRANSACTION") || p.eatKw("WORK")
		return &sqlast.TransactionStmt{Kind: "ROLLBACK"}, nil
	case p.kw("SET"):
		return p.parseSetStatement()
	case p.kw("INSERT"), p.kw("UPDATE"), p.kw("DELETE"), p.kw("CREATE"), p.kw("DROP"), p.kw("ALTER"):
		kw := p.cur().Text
		p.skipToStatementEnd()
		return &sqlast.UnknownStmt{Keyword: strings.ToUpper(kw)}, nil
	default:
		return nil, fmt.Errorf("unsupported or malformed statement starting at %q", p.cur().Text)
	}
}

func consumeOptional(p *Parser, word string) { p.eatKw(word) }

func (p *Parser) skipToStatementEnd() {
	depth := 0
	for p.cur().Kind != TokEOF {
		if p.punct("(") {
			depth++
		} else if p.punct(")") {
			depth--
		} else if p.punct(";") && depth == 0 {
			return
		}
		p.next()
	}
}

func (p *Parser) parseSetStatement() (sqlast.Statement, error) {
	p.next() // SET
	_ = p.eatKw("SESSION") || p.eatKw("GLOBAL") || p.eatKw("LOCAL")
	if p.eatKw("NAMES") {
		p.skipToStatementEnd()
		return &sqlast.SetStmt{Name: "NAMES"}, nil
	}
	name := p.cur().Text
	p.next()
	if p.eatPunct("=") || p.eatKw("TO") {
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &sqlast.SetStmt{Name: name, Value: val}, nil
	}
	p.skipToStatementEnd()
	return &sqlast.SetStmt{Name: name}, nil
}

// --- SELECT ---

func (p *Parser) parseSelectStatement() (*sqlast.SelectStatement, error) {
	var with *sqlast.With
	if p.kw("WITH") {
		w, err := p.parseWith()
		if err != nil {
			return nil, err
		}
		with = w
	}
	body, err := p.parseSetOpChain()
	if err != nil {
		return nil, err
	}
	stmt := &sqlast.SelectStatement{With: with, Body: body}
	if p.kw("ORDER") {
		items, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = items
	}
	if p.kw("LIMIT") || p.kw("OFFSET") {
		lim, err := p.parseLimit()
		if err != nil {
			return nil, err
		}
		stmt.Limit = lim
	}
	return stmt, nil
}

func (p *Parser) parseWith() (*sqlast.With, error) {
	p.next() // WITH
	_ = p.eatKw("RECURSIVE")
	w := &sqlast.With{}
	for {
		name := p.cur().Text
		p.next()
		if err := p.expectKw("AS"); err != nil {
			return nil, err
		}
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		q, err := p.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		w.CTEs = append(w.CTEs, &sqlast.CTE{Name: name, Query: q})
		if !p.eatPunct(",") {
			break
		}
	}
	return w, nil
}

// parseSetOpChain parses "primary (UNION|INTERSECT|EXCEPT [ALL] primary)*"
// left-associatively.
func (p *Parser) parseSetOpChain() (sqlast.SelectBody, error) {
	left, err := p.parsePrimarySelect()
	if err != nil {
		return nil, err
	}
	for p.kw("UNION") || p.kw("INTERSECT") || p.kw("EXCEPT") {
		op := strings.ToUpper(p.next().Text)
		all := p.eatKw("ALL")
		_ = p.eatKw("DISTINCT")
		right, err := p.parsePrimarySelect()
		if err != nil {
			return nil, err
		}
		left = &sqlast.SetOpClause{Op: op, All: all, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePrimarySelect() (sqlast.SelectBody, error) {
	if p.punct("(") {
		p.next()
		stmt, err := p.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &sqlast.SubSelectBody{Stmt: stmt}, nil
	}
	return p.parseSelectClause()
}

func (p *Parser) parseSelectClause() (*sqlast.SelectClause, error) {
	if err := p.expectKw("SELECT"); err != nil {
		return nil, err
	}
	sc := &sqlast.SelectClause{}
	if p.eatKw("DISTINCT") {
		sc.Distinct = true
		if p.eatKw("ON") {
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			exprs, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			sc.DistinctOn = exprs
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
	} else {
		_ = p.eatKw("ALL")
	}

	exprs, err := p.parseSelectExprList()
	if err != nil {
		return nil, err
	}
	sc.Exprs = exprs

	if p.eatKw("FROM") {
		from, err := p.parseTableExprList()
		if err != nil {
			return nil, err
		}
		sc.From = from
	}
	if p.eatKw("WHERE") {
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sc.Where = w
	}
	if p.kw("GROUP") && p.kwAt(1, "BY") {
		p.next()
		p.next()
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		sc.GroupBy = exprs
	}
	if p.eatKw("HAVING") {
		h, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sc.Having = h
	}
	return sc, nil
}

func (p *Parser) parseSelectExprList() ([]sqlast.SelectExpr, error) {
	var out []sqlast.SelectExpr
	for {
		se, err := p.parseSelectExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, se)
		if !p.eatPunct(",") {
			return out, nil
		}
	}
}

func (p *Parser) parseSelectExpr() (sqlast.SelectExpr, error) {
	if p.punct("*") {
		p.next()
		return sqlast.SelectExpr{Expr: &sqlast.Star{}}, nil
	}
	if p.cur().Kind == TokIdent && p.toks[p.pos+1].Kind == TokPunct && p.toks[p.pos+1].Text == "." &&
		p.pos+2 < len(p.toks) && p.toks[p.pos+2].Kind == TokPunct && p.toks[p.pos+2].Text == "*" {
		table := p.next().Text
		p.next() // .
		p.next() // *
		return sqlast.SelectExpr{Expr: &sqlast.TableStar{Table: table}}, nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return sqlast.SelectExpr{}, err
	}
	alias := ""
	if p.eatKw("AS") {
		alias = p.next().Text
	} else if p.cur().Kind == TokIdent && !isReservedFollow(p.cur().Text) {
		alias = p.next().Text
	}
	return sqlast.SelectExpr{Expr: e, Alias: alias}, nil
}

// isReservedFollow reports whether an identifier following a select-expr
// or table-factor is a keyword that should terminate implicit-alias
// parsing rather than be consumed as the alias itself.
func isReservedFollow(word string) bool {
	switch strings.ToUpper(word) {
	case "FROM", "WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "OFFSET",
		"UNION", "INTERSECT", "EXCEPT", "JOIN", "INNER", "LEFT", "RIGHT",
		"FULL", "CROSS", "ON", "AND", "OR", "AS":
		return true
	}
	return false
}

func (p *Parser) parseExprList() ([]sqlast.Expr, error) {
	var out []sqlast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if !p.eatPunct(",") {
			return out, nil
		}
	}
}

// --- FROM / JOIN ---

func (p *Parser) parseTableExprList() ([]sqlast.TableExpr, error) {
	var out []sqlast.TableExpr
	for {
		te, err := p.parseJoinedTable()
		if err != nil {
			return nil, err
		}
		out = append(out, te)
		if !p.eatPunct(",") {
			return out, nil
		}
	}
}

func (p *Parser) parseJoinedTable() (sqlast.TableExpr, error) {
	left, err := p.parseTableFactor()
	if err != nil {
		return nil, err
	}
	for {
		kind := ""
		switch {
		case p.kw("INNER") && p.kwAt(1, "JOIN"):
			p.next()
			p.next()
			kind = "INNER"
		case p.kw("JOIN"):
			p.next()
			kind = "INNER"
		case p.kw("LEFT"):
			p.next()
			_ = p.eatKw("OUTER")
			if err := p.expectKw("JOIN"); err != nil {
				return nil, err
			}
			kind = "LEFT"
		case p.kw("RIGHT"):
			p.next()
			_ = p.eatKw("OUTER")
			if err := p.expectKw("JOIN"); err != nil {
				return nil, err
			}
			kind = "RIGHT"
		case p.kw("FULL"):
			p.next()
			_ = p.eatKw("OUTER")
			if err := p.expectKw("JOIN"); err != nil {
				return nil, err
			}
			kind = "FULL"
		case p.kw("CROSS") && p.kwAt(1, "JOIN"):
			p.next()
			p.next()
			kind = "CROSS"
		default:
			return left, nil
		}
		right, err := p.parseTableFactor()
		if err != nil {
			return nil, err
		}
		var on sqlast.Expr
		if kind != "CROSS" {
			if err := p.expectKw("ON"); err != nil {
				return nil, err
			}
			on, err = p.parseExpr()
			if err != nil {
				return nil, err
			}
		}
		left = &sqlast.JoinExpr{Kind: kind, Left: left, Right: right, On: on}
	}
}

func (p *Parser) parseTableFactor() (sqlast.TableExpr, error) {
	var base sqlast.TableExpr
	if p.punct("(") {
		p.next()
		if p.kw("SELECT") || p.kw("WITH") {
			q, err := p.parseSelectStatement()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			base = &sqlast.Subquery{Query: q}
		} else {
			jt, err := p.parseJoinedTable()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			base = jt
		}
	} else {
		name := p.next().Text
		for p.eatPunct(".") {
			name = p.next().Text // drop schema qualification, keep final identifier
		}
		base = &sqlast.TableName{Name: name}
	}
	alias := ""
	if p.eatKw("AS") {
		alias = p.next().Text
	} else if p.cur().Kind == TokIdent && !isReservedFollow(p.cur().Text) && !p.kw("ON") {
		alias = p.next().Text
	}
	if alias != "" {
		return &sqlast.AliasedTable{Expr: base, Alias: alias}, nil
	}
	return base, nil
}

// --- ORDER BY / LIMIT ---

func (p *Parser) parseOrderBy() ([]*sqlast.OrderItem, error) {
	p.next() // ORDER
	if err := p.expectKw("BY"); err != nil {
		return nil, err
	}
	var out []*sqlast.OrderItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := &sqlast.OrderItem{Expr: e}
		if p.eatKw("ASC") {
		} else if p.eatKw("DESC") {
			item.Desc = true
		}
		if p.kw("NULLS") {
			p.next()
			if p.eatKw("FIRST") {
				item.NullsFirst = true
				item.NullsSet = true
			} else if p.eatKw("LAST") {
				item.NullsFirst = false
				item.NullsSet = true
			}
		}
		out = append(out, item)
		if !p.eatPunct(",") {
			return out, nil
		}
	}
}

func (p *Parser) parseLimit() (*sqlast.LimitClause, error) {
	lim := &sqlast.LimitClause{}
	if p.eatKw("LIMIT") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lim.Count = e
		if p.eatPunct(",") {
			off, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			lim.Offset = lim.Count
			lim.Count = off
		}
	}
	if p.eatKw("OFFSET") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lim.Offset = e
	}
	return lim, nil
}

// --- expressions, precedence climbing ---

func (p *Parser) parseExpr() (sqlast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (sqlast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.kw("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (sqlast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.kw("AND") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (sqlast.Expr, error) {
	if p.kw("NOT") {
		p.next()
		e, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &sqlast.UnaryExpr{Op: "NOT", Expr: e}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (sqlast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.punct("=") || p.punct("<>") || p.punct("<") || p.punct("<=") || p.punct(">") || p.punct(">="):
			op := p.next().Text
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &sqlast.BinaryExpr{Op: op, Left: left, Right: right}
		case p.kw("IS"):
			p.next()
			not := p.eatKw("NOT")
			if err := p.expectKw("NULL"); err != nil {
				return nil, err
			}
			left = &sqlast.IsNullExpr{Expr: left, Not: not}
		case p.kw("BETWEEN"):
			p.next()
			low, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			if err := p.expectKw("AND"); err != nil {
				return nil, err
			}
			high, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &sqlast.BetweenExpr{Expr: left, Low: low, High: high}
		case p.kw("NOT") && (p.kwAt(1, "BETWEEN") || p.kwAt(1, "IN") || p.kwAt(1, "LIKE")):
			p.next()
			switch {
			case p.kw("BETWEEN"):
				p.next()
				low, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				if err := p.expectKw("AND"); err != nil {
					return nil, err
				}
				high, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &sqlast.BetweenExpr{Expr: left, Low: low, High: high, Not: true}
			case p.kw("IN"):
				in, err := p.parseInExpr(left, true)
				if err != nil {
					return nil, err
				}
				left = in
			case p.kw("LIKE"):
				p.next()
				pat, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = &sqlast.LikeExpr{Expr: left, Pattern: pat, Not: true}
			}
		case p.kw("IN"):
			in, err := p.parseInExpr(left, false)
			if err != nil {
				return nil, err
			}
			left = in
		case p.kw("LIKE"):
			p.next()
			pat, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &sqlast.LikeExpr{Expr: left, Pattern: pat}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseInExpr(left sqlast.Expr, not bool) (sqlast.Expr, error) {
	p.next() // IN
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if p.kw("SELECT") || p.kw("WITH") {
		q, err := p.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &sqlast.InExpr{Expr: left, Subquery: q, Not: not}, nil
	}
	list, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &sqlast.InExpr{Expr: left, List: list, Not: not}, nil
}

func (p *Parser) parseAdditive() (sqlast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.punct("+") || p.punct("-") || p.punct("||") {
		op := p.next().Text
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (sqlast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.punct("*") || p.punct("/") || p.punct("%") {
		op := p.next().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &sqlast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (sqlast.Expr, error) {
	if p.punct("-") {
		p.next()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &sqlast.UnaryExpr{Op: "-", Expr: e}, nil
	}
	if p.punct("+") {
		p.next()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (sqlast.Expr, error) {
	switch {
	case p.punct("("):
		p.next()
		if p.kw("SELECT") || p.kw("WITH") {
			q, err := p.parseSelectStatement()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return &sqlast.ScalarSubquery{Query: q}, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &sqlast.ParenExpr{Expr: e}, nil
	case p.kw("NOT") && p.kwAt(1, "EXISTS"):
		p.next()
		p.next()
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		q, err := p.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &sqlast.ExistsExpr{Query: q, Not: true}, nil
	case p.kw("EXISTS"):
		p.next()
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		q, err := p.parseSelectStatement()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &sqlast.ExistsExpr{Query: q}, nil
	case p.kw("CASE"):
		return p.parseCase()
	case p.kw("NULL"):
		p.next()
		return &sqlast.NullLiteral{}, nil
	case p.kw("TRUE"):
		p.next()
		return &sqlast.BoolLiteral{Value: true}, nil
	case p.kw("FALSE"):
		p.next()
		return &sqlast.BoolLiteral{Value: false}, nil
	case p.kw("DATE") && p.toks[p.pos+1].Kind == TokString:
		p.next()
		s := p.next().Text
		return &sqlast.DateLiteral{Text: s}, nil
	case p.kw("TIME") && p.toks[p.pos+1].Kind == TokString:
		p.next()
		s := p.next().Text
		return &sqlast.TimeLiteral{Text: s}, nil
	case p.kw("TIMESTAMP") && p.toks[p.pos+1].Kind == TokString:
		p.next()
		s := p.next().Text
		return &sqlast.TimestampLiteral{Text: s}, nil
	case p.cur().Kind == TokNumber:
		text := p.next().Text
		if strings.ContainsAny(text, ".eE") {
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, err
			}
			return &sqlast.FloatLiteral{Value: f}, nil
		}
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			// overflow or otherwise non-int64: keep exact text as decimal.
			return &sqlast.DecimalLiteral{Text: text}, nil
		}
		return &sqlast.IntLiteral{Value: i}, nil
	case p.cur().Kind == TokString:
		s := p.next().Text
		return &sqlast.StringLiteral{Value: s}, nil
	case p.cur().Kind == TokParam:
		text := p.next().Text
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("malformed parameter marker $%s", text)
		}
		return &sqlast.Placeholder{Index: n}, nil
	case p.punct("?"):
		p.next()
		p.qmark++
		return &sqlast.Placeholder{Index: p.qmark}, nil
	case p.cur().Kind == TokIdent:
		return p.parseIdentOrCall()
	default:
		return nil, fmt.Errorf("unexpected token %q", p.cur().Text)
	}
}

func (p *Parser) parseCase() (sqlast.Expr, error) {
	p.next() // CASE
	ce := &sqlast.CaseExpr{}
	if !p.kw("WHEN") {
		op, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Operand = op
	}
	for p.kw("WHEN") {
		p.next()
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKw("THEN"); err != nil {
			return nil, err
		}
		res, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Whens = append(ce.Whens, sqlast.WhenClause{Cond: cond, Result: res})
	}
	if p.eatKw("ELSE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ce.Else = e
	}
	if err := p.expectKw("END"); err != nil {
		return nil, err
	}
	return ce, nil
}

// parseIdentOrCall handles column refs (possibly qualified), function
// calls (including aggregates with DISTINCT/COUNT(*) and window OVER
// clauses), and EXTRACT's special FROM-separated argument syntax.
func (p *Parser) parseIdentOrCall() (sqlast.Expr, error) {
	name := p.next().Text
	if strings.EqualFold(name, "EXTRACT") && p.punct("(") {
		return p.parseExtract()
	}
	if p.punct("(") {
		return p.parseCallArgs(name)
	}
	if p.eatPunct(".") {
		if p.punct("*") {
			p.next()
			return &sqlast.TableStar{Table: name}, nil
		}
		col := p.next().Text
		return &sqlast.ColumnRef{Table: name, Name: col}, nil
	}
	return &sqlast.ColumnRef{Name: name}, nil
}

func (p *Parser) parseExtract() (sqlast.Expr, error) {
	p.next() // (
	field := p.next().Text
	if err := p.expectKw("FROM"); err != nil {
		return nil, err
	}
	arg, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &sqlast.FuncCall{Name: "EXTRACT", Args: []sqlast.Expr{&sqlast.StringLiteral{Value: strings.ToUpper(field)}, arg}}, nil
}

func (p *Parser) parseCallArgs(name string) (sqlast.Expr, error) {
	p.next() // (
	fc := &sqlast.FuncCall{Name: strings.ToUpper(name)}
	if p.punct("*") {
		p.next()
		fc.Star = true
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		fc.Over, _ = p.tryParseOver()
		return fc, nil
	}
	if p.eatKw("DISTINCT") {
		fc.Distinct = true
	}
	if !p.punct(")") {
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		fc.Args = args
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	over, err := p.tryParseOver()
	if err != nil {
		return nil, err
	}
	fc.Over = over
	return fc, nil
}

func (p *Parser) tryParseOver() (*sqlast.WindowSpec, error) {
	if !p.kw("OVER") {
		return nil, nil
	}
	p.next()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	ws := &sqlast.WindowSpec{}
	if p.kw("PARTITION") {
		p.next()
		if err := p.expectKw("BY"); err != nil {
			return nil, err
		}
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		ws.PartitionBy = exprs
	}
	if p.kw("ORDER") {
		items, err := p.parseOrderBy()
		if err != nil {
			return nil, err
		}
		ws.OrderBy = items
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return ws, nil
}
