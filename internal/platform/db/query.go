package db

import (
	"fmt"
	"strings"
)

// Query builds a filtered SELECT with positional arguments. Clauses are
// ANDed in the order they are added.
type Query struct {
	from    string
	cols    string
	where   string
	args    []any
	idx     int
	orderBy string
}

// NewQuery starts a query over from, which may carry an alias ("patient p").
func NewQuery(from, cols string) *Query {
	return &Query{from: from, cols: cols, idx: 1}
}

// Idx returns the next available parameter index.
func (q *Query) Idx() int { return q.idx }

// Add appends a raw WHERE clause fragment (without leading "AND"). The
// fragment must number its placeholders from Idx().
func (q *Query) Add(clause string, args ...any) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
}

// AddEq adds "column = $n".
func (q *Query) AddEq(column string, value any) {
	q.Add(fmt.Sprintf("%s = $%d", column, q.idx), value)
}

// AddContains adds a substring match on column. value must not carry LIKE
// wildcards of its own.
func (q *Query) AddContains(column, value string) {
	q.Add(fmt.Sprintf("%s LIKE $%d", column, q.idx), "%"+value+"%")
}

// Disjunction collects alternatives that are added as one parenthesised OR.
type Disjunction struct {
	q     *Query
	parts []string
	args  []any
}

// Or starts a disjunction whose placeholders continue from Idx().
func (q *Query) Or() *Disjunction {
	return &Disjunction{q: q}
}

// Idx returns the placeholder index for the next alternative's argument.
func (d *Disjunction) Idx() int { return d.q.idx + len(d.args) }

func (d *Disjunction) Add(clause string, args ...any) {
	d.parts = append(d.parts, clause)
	d.args = append(d.args, args...)
}

// Close adds the disjunction to the query. An empty disjunction matches
// nothing.
func (d *Disjunction) Close() {
	if len(d.parts) == 0 {
		d.q.Add("FALSE")
		return
	}
	d.q.Add("("+strings.Join(d.parts, " OR ")+")", d.args...)
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (q *Query) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

func (q *Query) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.from, q.where)
}

func (q *Query) CountArgs() []any {
	return q.args
}

// DataSQL returns the data query with ORDER BY and LIMIT/OFFSET.
func (q *Query) DataSQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.from, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return sql
}

func (q *Query) DataArgs(limit, offset int) []any {
	out := make([]any, len(q.args)+2)
	copy(out, q.args)
	out[len(q.args)] = limit
	out[len(q.args)+1] = offset
	return out
}
