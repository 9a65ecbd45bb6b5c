// Package query holds the boolean column expressions that filters produce and
// the warehouse table handle renders into SQL.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Expr is a boolean condition over the columns of a single table.
type Expr interface {
	// write appends the expression to w. In inline mode values are rendered
	// as SQL literals, otherwise as '?' placeholders collected in w.args.
	write(w *writer)
}

type writer struct {
	b      strings.Builder
	args   []any
	inline bool
}

func (w *writer) value(v any) {
	if w.inline {
		w.b.WriteString(Literal(v))
		return
	}
	w.b.WriteByte('?')
	w.args = append(w.args, v)
}

// Render returns the expression with '?' placeholders and its bind values.
func Render(e Expr) (string, []any) {
	w := &writer{}
	e.write(w)
	return w.b.String(), w.args
}

// Inline returns the expression with values rendered as literals. Used for
// display and for canonical ordering, never for execution.
func Inline(e Expr) string {
	w := &writer{inline: true}
	e.write(w)
	return w.b.String()
}

// QuoteIdent upper-cases and double-quotes a column or table identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(strings.ToUpper(name), `"`, `""`) + `"`
}

// Literal renders v as a SQL literal.
func Literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(t), "'", "''") + "'"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Eq is column = value.
type Eq struct {
	Column string
	Value  any
}

func (e Eq) write(w *writer) {
	w.b.WriteString(QuoteIdent(e.Column))
	w.b.WriteString(" = ")
	w.value(e.Value)
}

// Between is the inclusive range Low <= column <= High.
type Between struct {
	Column string
	Low    float64
	High   float64
}

func (e Between) write(w *writer) {
	w.b.WriteString(QuoteIdent(e.Column))
	w.b.WriteString(" BETWEEN ")
	w.value(e.Low)
	w.b.WriteString(" AND ")
	w.value(e.High)
}

// In is categorical membership. An empty set matches no rows.
type In struct {
	Column string
	Values []any
}

func (e In) write(w *writer) {
	if len(e.Values) == 0 {
		w.b.WriteString("1 = 0")
		return
	}
	w.b.WriteString(QuoteIdent(e.Column))
	w.b.WriteString(" IN (")
	for i, v := range e.Values {
		if i > 0 {
			w.b.WriteString(", ")
		}
		w.value(v)
	}
	w.b.WriteByte(')')
}

// NotNull excludes rows where the column is NULL.
type NotNull struct {
	Column string
}

func (e NotNull) write(w *writer) {
	w.b.WriteString(QuoteIdent(e.Column))
	w.b.WriteString(" IS NOT NULL")
}

// Conjunction is the logical AND of its terms. Build it with And.
type Conjunction struct {
	terms []Expr
}

func (c Conjunction) write(w *writer) {
	for i, t := range c.terms {
		if i > 0 {
			w.b.WriteString(" AND ")
		}
		w.b.WriteByte('(')
		t.write(w)
		w.b.WriteByte(')')
	}
}

// Terms returns the flattened, ordered terms of the conjunction.
func (c Conjunction) Terms() []Expr {
	out := make([]Expr, len(c.terms))
	copy(out, c.terms)
	return out
}

// And conjoins the given expressions. Nil terms are skipped, nested
// conjunctions are flattened and terms are ordered by their inline text, so
// the result does not depend on argument order or grouping. It returns nil
// when no terms remain and the bare term when only one does.
func And(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	for _, t := range terms {
		switch v := t.(type) {
		case nil:
		case Conjunction:
			flat = append(flat, v.terms...)
		default:
			flat = append(flat, v)
		}
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}

	type keyed struct {
		key  string
		expr Expr
	}
	items := make([]keyed, len(flat))
	for i, t := range flat {
		items[i] = keyed{key: Inline(t), expr: t}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].key < items[j].key })

	deduped := []Expr{items[0].expr}
	for i := 1; i < len(items); i++ {
		if items[i].key != items[i-1].key {
			deduped = append(deduped, items[i].expr)
		}
	}
	if len(deduped) == 1 {
		return deduped[0]
	}
	return Conjunction{terms: deduped}
}
