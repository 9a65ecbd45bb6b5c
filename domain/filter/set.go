package filter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"survivaldash/domain/query"
	"survivaldash/internal/errors"

	"golang.org/x/sync/errgroup"
)

// OptionSource supplies widget options from the underlying table.
type OptionSource interface {
	Distinct(ctx context.Context, column string) ([]any, error)
	Bounds(ctx context.Context, column string) (min, max float64, err error)
}

// Catalog is the fixed, ordered list of filter definitions together with
// their loaded options. It is read-only once LoadOptions has returned.
type Catalog struct {
	defs    []Definition
	options []Options
}

// NewCatalog validates the definitions. Human names and widget ids must be
// unique.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	names := make(map[string]bool, len(defs))
	ids := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.HumanName == "" || d.TableColumn == "" || d.WidgetID == "" {
			return nil, errors.ConfigInvalid("filter definition needs a name, column and widget id")
		}
		if !d.WidgetType.Valid() {
			return nil, errors.ConfigInvalid(fmt.Sprintf("filter %q: unknown widget type %q", d.HumanName, d.WidgetType))
		}
		if names[d.HumanName] || ids[d.WidgetID] {
			return nil, errors.ConfigInvalid(fmt.Sprintf("duplicate filter %q", d.HumanName))
		}
		names[d.HumanName], ids[d.WidgetID] = true, true
	}
	return &Catalog{
		defs:    append([]Definition(nil), defs...),
		options: make([]Options, len(defs)),
	}, nil
}

// DefaultDefinitions are the filters of the survival analysis page.
func DefaultDefinitions() []Definition {
	return []Definition{
		{HumanName: "Gender", TableColumn: "SEX", WidgetID: "gender_selectbox", WidgetType: Selectbox},
		{HumanName: "Age", TableColumn: "AGE", WidgetID: "age_slider", WidgetType: SelectSlider},
		{HumanName: "Fare", TableColumn: "FARE", WidgetID: "fare_slider", WidgetType: SelectSlider},
		{HumanName: "Class", TableColumn: "PCLASS", WidgetID: "class_selectbox", WidgetType: Selectbox},
		{HumanName: "Port of Departure", TableColumn: "EMBARKED", WidgetID: "port_multiselect", WidgetType: MultiSelect},
	}
}

// Definitions returns the definitions in display order.
func (c *Catalog) Definitions() []Definition {
	return append([]Definition(nil), c.defs...)
}

// LoadOptions queries every filter's choices or bounds concurrently.
func (c *Catalog) LoadOptions(ctx context.Context, src OptionSource) error {
	loaded := make([]Options, len(c.defs))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range c.defs {
		i, d := i, d
		g.Go(func() error {
			if d.WidgetType == SelectSlider {
				lo, hi, err := src.Bounds(gctx, d.TableColumn)
				if err != nil {
					return errors.Wrapf(err, "load bounds for %s", d.TableColumn)
				}
				loaded[i] = Options{Min: lo, Max: hi}
				return nil
			}
			choices, err := src.Distinct(gctx, d.TableColumn)
			if err != nil {
				return errors.Wrapf(err, "load choices for %s", d.TableColumn)
			}
			loaded[i] = Options{Choices: choices}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	c.options = loaded
	return nil
}

// NewSet returns a fresh per-request set with every filter disabled.
func (c *Catalog) NewSet() *Set {
	filters := make([]*Filter, len(c.defs))
	for i, d := range c.defs {
		filters[i] = newFilter(d, c.options[i])
	}
	return &Set{filters: filters}
}

// Set is the ordered filter collection of one request.
type Set struct {
	filters []*Filter
}

// Filters returns every filter in display order.
func (s *Set) Filters() []*Filter { return s.filters }

// Names returns the human names in display order.
func (s *Set) Names() []string {
	names := make([]string, len(s.filters))
	for i, f := range s.filters {
		names[i] = f.HumanName
	}
	return names
}

// Enable enables the filters with the given human names.
func (s *Set) Enable(names ...string) error {
	for _, n := range names {
		f := s.byName(n)
		if f == nil {
			return errors.InvalidInput(fmt.Sprintf("unknown filter %q", n))
		}
		f.Enable()
	}
	return nil
}

// Active returns the enabled filters in display order.
func (s *Set) Active() []*Filter {
	var out []*Filter
	for _, f := range s.filters {
		if f.IsEnabled() {
			out = append(out, f)
		}
	}
	return out
}

// AnyEnabled reports whether at least one filter is enabled.
func (s *Set) AnyEnabled() bool {
	for _, f := range s.filters {
		if f.IsEnabled() {
			return true
		}
	}
	return false
}

// Capture reads the submitted value of every enabled filter from form.
// Values must be among the loaded choices or within the loaded bounds.
func (s *Set) Capture(form url.Values) error {
	for _, f := range s.Active() {
		v, err := parseValue(f, form)
		if err != nil {
			return err
		}
		f.Capture(v)
	}
	return nil
}

// Predicate is the conjunction of the enabled filters' predicates, or nil
// when none is enabled. Disabled filters contribute nothing.
func (s *Set) Predicate() (query.Expr, error) {
	var terms []query.Expr
	for _, f := range s.Active() {
		p, err := f.Predicate()
		if err != nil {
			return nil, err
		}
		terms = append(terms, p)
	}
	return query.And(terms...), nil
}

func (s *Set) byName(name string) *Filter {
	for _, f := range s.filters {
		if f.HumanName == name {
			return f
		}
	}
	return nil
}

func parseValue(f *Filter, form url.Values) (Value, error) {
	switch f.WidgetType {
	case Selectbox:
		raw := form.Get(f.WidgetID)
		choice, ok := lookupChoice(f.options.Choices, raw)
		if !ok {
			return Value{}, errors.InvalidInput(fmt.Sprintf("%s: %q is not an available choice", f.HumanName, raw))
		}
		return Value{Choice: choice}, nil

	case MultiSelect:
		raws := form[f.WidgetID]
		choices := make([]any, 0, len(raws))
		for _, raw := range raws {
			choice, ok := lookupChoice(f.options.Choices, raw)
			if !ok {
				return Value{}, errors.InvalidInput(fmt.Sprintf("%s: %q is not an available choice", f.HumanName, raw))
			}
			choices = append(choices, choice)
		}
		return Value{Choices: choices}, nil

	case SelectSlider:
		lo, err := parseBound(form, LowKey(f.WidgetID), f.options.Min)
		if err != nil {
			return Value{}, errors.Wrap(err, f.HumanName)
		}
		hi, err := parseBound(form, HighKey(f.WidgetID), f.options.Max)
		if err != nil {
			return Value{}, errors.Wrap(err, f.HumanName)
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		if lo < f.options.Min || hi > f.options.Max {
			return Value{}, errors.InvalidInput(fmt.Sprintf("%s: range %g..%g is outside %g..%g",
				f.HumanName, lo, hi, f.options.Min, f.options.Max))
		}
		return Value{Low: lo, High: hi}, nil
	}
	return Value{}, errors.InternalError(fmt.Sprintf("unknown widget type %q", f.WidgetType))
}

func lookupChoice(choices []any, raw string) (any, bool) {
	for _, c := range choices {
		if choiceKey(c) == raw {
			return c, true
		}
	}
	return nil, false
}

func parseBound(form url.Values, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(form.Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("%s is not a number", key))
	}
	return v, nil
}
