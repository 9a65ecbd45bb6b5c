package ports

import (
	"context"

	"survivaldash/domain/prediction"
	"survivaldash/domain/query"
)

// GroupCount is one row of a group-by-count aggregation.
type GroupCount struct {
	Key   any   `json:"key"`
	Count int64 `json:"count"`
}

// TableHandle is a lazy reference to a server-side table. Where composes a
// predicate without executing anything; the remaining methods execute.
type TableHandle interface {
	Name() string
	Where(pred query.Expr) TableHandle
	// Queries returns the SQL text the handle currently stands for, with
	// values inlined.
	Queries() []string

	GroupByCount(ctx context.Context, column string) ([]GroupCount, error)
	Count(ctx context.Context) (int64, error)
	Floats(ctx context.Context, column string) ([]float64, error)
	Distinct(ctx context.Context, column string) ([]any, error)
	Bounds(ctx context.Context, column string) (min, max float64, err error)
}

// WarehouseSession hands out table handles over one shared connection.
type WarehouseSession interface {
	Table(name string) TableHandle
}

// Scorer invokes a named server-side scoring function on a single record.
type Scorer interface {
	Score(ctx context.Context, function string, record []prediction.Field) (float64, error)
}
