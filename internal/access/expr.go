package access

import "strings"

// Expr is a composable SQL predicate. Column and table names are trusted
// identifiers supplied by code; values are always bound as parameters.
type Expr interface {
	render(b *builder)
}

type builder struct {
	sb   strings.Builder
	args []any
}

// Build renders e as a SQL fragment with ? placeholders. A nil Expr renders
// as a tautology.
func Build(e Expr) (string, []any) {
	if e == nil {
		e = True()
	}
	b := &builder{}
	e.render(b)
	return b.sb.String(), b.args
}

type constExpr bool

func (c constExpr) render(b *builder) {
	if c {
		b.sb.WriteString("1=1")
	} else {
		b.sb.WriteString("1=0")
	}
}

func True() Expr  { return constExpr(true) }
func False() Expr { return constExpr(false) }

type cmpExpr struct {
	col string
	op  string
	val any
}

func (c cmpExpr) render(b *builder) {
	b.sb.WriteString(c.col)
	b.sb.WriteString(" ")
	b.sb.WriteString(c.op)
	b.sb.WriteString(" ?")
	b.args = append(b.args, c.val)
}

func Eq(col string, val any) Expr { return cmpExpr{col, "=", val} }
func Ne(col string, val any) Expr { return cmpExpr{col, "<>", val} }

// Cmp compares col against val with one of >, >=, < or <=.
func Cmp(col, op string, val any) Expr {
	switch op {
	case ">", ">=", "<", "<=":
	default:
		panic("access: unsupported comparison operator " + op)
	}
	return cmpExpr{col, op, val}
}

type colEqExpr struct{ left, right string }

func (c colEqExpr) render(b *builder) {
	b.sb.WriteString(c.left + " = " + c.right)
}

// ColEq correlates two columns, e.g. inside an EXISTS subquery.
func ColEq(left, right string) Expr { return colEqExpr{left, right} }

type isNullExpr struct{ col string }

func (n isNullExpr) render(b *builder) {
	b.sb.WriteString(n.col + " IS NULL")
}

func IsNull(col string) Expr { return isNullExpr{col} }

type inExpr struct {
	col  string
	vals []uint64
}

func (i inExpr) render(b *builder) {
	if len(i.vals) == 0 {
		False().render(b)
		return
	}
	b.sb.WriteString(i.col + " IN ?")
	b.args = append(b.args, i.vals)
}

// In matches col against a list of ids. An empty list matches nothing.
func In(col string, ids []uint64) Expr { return inExpr{col, ids} }

type listExpr struct {
	op    string
	items []Expr
	empty constExpr
}

func (l listExpr) render(b *builder) {
	items := make([]Expr, 0, len(l.items))
	for _, it := range l.items {
		// identity elements drop out: true under AND, false under OR
		if it != nil && !trivial(it, bool(l.empty)) {
			items = append(items, it)
		}
	}
	switch len(items) {
	case 0:
		l.empty.render(b)
		return
	case 1:
		items[0].render(b)
		return
	}
	b.sb.WriteString("(")
	for i, it := range items {
		if i > 0 {
			b.sb.WriteString(l.op)
		}
		it.render(b)
	}
	b.sb.WriteString(")")
}

// trivial reports whether e always evaluates to v without touching a row.
func trivial(e Expr, v bool) bool {
	switch t := e.(type) {
	case constExpr:
		return bool(t) == v
	case listExpr:
		if bool(t.empty) != v {
			return false
		}
		for _, it := range t.items {
			if it != nil && !trivial(it, v) {
				return false
			}
		}
		return true
	}
	return false
}

// And joins the non-nil operands. With no operands it is true.
func And(items ...Expr) Expr { return listExpr{" AND ", items, true} }

// Or joins the non-nil operands. With no operands it is false.
func Or(items ...Expr) Expr { return listExpr{" OR ", items, false} }

type notExpr struct{ inner Expr }

func (n notExpr) render(b *builder) {
	b.sb.WriteString("NOT (")
	n.inner.render(b)
	b.sb.WriteString(")")
}

func Not(e Expr) Expr { return notExpr{e} }

type existsExpr struct {
	from  string
	where Expr
}

func (e existsExpr) render(b *builder) {
	b.sb.WriteString("EXISTS (SELECT 1 FROM " + e.from + " WHERE ")
	e.where.render(b)
	b.sb.WriteString(")")
}

// Exists renders EXISTS (SELECT 1 FROM from WHERE where). from may carry an
// alias, e.g. "task_assignments ta".
func Exists(from string, where Expr) Expr { return existsExpr{from, where} }

type inSubExpr struct {
	col   string
	sel   string
	from  string
	where Expr
}

func (s inSubExpr) render(b *builder) {
	b.sb.WriteString(s.col + " IN (SELECT " + s.sel + " FROM " + s.from + " WHERE ")
	s.where.render(b)
	b.sb.WriteString(")")
}

// InSubquery renders col IN (SELECT sel FROM from WHERE where).
func InSubquery(col, sel, from string, where Expr) Expr {
	return inSubExpr{col, sel, from, where}
}
