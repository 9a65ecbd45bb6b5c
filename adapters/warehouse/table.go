package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"survivaldash/domain/query"
	"survivaldash/internal/errors"
	"survivaldash/ports"
)

// Table is an immutable lazy handle. Composing predicates builds SQL; only
// the aggregation and materialization methods touch the warehouse.
type Table struct {
	session *Session
	name    string
	where   query.Expr
}

var _ ports.TableHandle = (*Table)(nil)

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Where returns a new handle restricted by pred, conjoined with any
// predicate already applied. A nil pred returns the same handle.
func (t *Table) Where(pred query.Expr) ports.TableHandle {
	if pred == nil {
		return t
	}
	return &Table{session: t.session, name: t.name, where: query.And(t.where, pred)}
}

// Predicate returns the composed predicate, nil when unrestricted.
func (t *Table) Predicate() query.Expr { return t.where }

// Queries returns the SELECT the handle stands for with values inlined.
func (t *Table) Queries() []string {
	q := "SELECT * FROM " + query.QuoteIdent(t.name)
	if t.where != nil {
		q += " WHERE " + query.Inline(t.where)
	}
	return []string{q}
}

func (t *Table) selectSQL(projection, suffix string) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(projection)
	b.WriteString(" FROM ")
	b.WriteString(query.QuoteIdent(t.name))

	var args []any
	if t.where != nil {
		cond, condArgs := query.Render(t.where)
		b.WriteString(" WHERE ")
		b.WriteString(cond)
		args = condArgs
	}
	if suffix != "" {
		b.WriteByte(' ')
		b.WriteString(suffix)
	}
	return t.session.db.Rebind(b.String()), args
}

// GroupByCount groups the rows by column and counts each group, ordered by
// the group key.
func (t *Table) GroupByCount(ctx context.Context, column string) ([]ports.GroupCount, error) {
	col := query.QuoteIdent(column)
	q, args := t.selectSQL(col+`, COUNT(*) AS "COUNT"`, "GROUP BY "+col+" ORDER BY "+col)

	rows, err := t.session.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, t.wrap(err, "group by %s", column)
	}
	defer rows.Close()

	var out []ports.GroupCount
	for rows.Next() {
		var key any
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, t.wrap(err, "scan group of %s", column)
		}
		out = append(out, ports.GroupCount{Key: normalize(key), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, t.wrap(err, "group by %s", column)
	}
	return out, nil
}

// Count returns the number of rows.
func (t *Table) Count(ctx context.Context) (int64, error) {
	q, args := t.selectSQL("COUNT(*)", "")
	var n int64
	if err := t.session.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, t.wrap(err, "count rows")
	}
	return n, nil
}

// Floats materializes the non-null values of a numeric column.
func (t *Table) Floats(ctx context.Context, column string) ([]float64, error) {
	col := query.QuoteIdent(column)
	restricted := t.Where(query.NotNull{Column: column}).(*Table)
	q, args := restricted.selectSQL(col, "")

	var out []float64
	if err := t.session.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, t.wrap(err, "read %s", column)
	}
	return out, nil
}

// Distinct returns the sorted non-null distinct values of column.
func (t *Table) Distinct(ctx context.Context, column string) ([]any, error) {
	col := query.QuoteIdent(column)
	restricted := t.Where(query.NotNull{Column: column}).(*Table)
	q, args := restricted.selectSQL("DISTINCT "+col, "ORDER BY "+col)

	rows, err := t.session.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, t.wrap(err, "distinct %s", column)
	}
	defer rows.Close()

	var out []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, t.wrap(err, "scan distinct %s", column)
		}
		out = append(out, normalize(v))
	}
	if err := rows.Err(); err != nil {
		return nil, t.wrap(err, "distinct %s", column)
	}
	return out, nil
}

// Bounds returns the minimum and maximum of a numeric column.
func (t *Table) Bounds(ctx context.Context, column string) (float64, float64, error) {
	col := query.QuoteIdent(column)
	q, args := t.selectSQL(fmt.Sprintf("MIN(%s), MAX(%s)", col, col), "")

	var lo, hi sql.NullFloat64
	if err := t.session.db.QueryRowxContext(ctx, q, args...).Scan(&lo, &hi); err != nil {
		return 0, 0, t.wrap(err, "bounds of %s", column)
	}
	if !lo.Valid || !hi.Valid {
		return 0, 0, errors.NotFound(fmt.Sprintf("values of %s.%s", t.name, column))
	}
	return lo.Float64, hi.Float64, nil
}

func (t *Table) wrap(err error, format string, args ...any) error {
	return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, t.name+": "+format, args...))
}

func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
