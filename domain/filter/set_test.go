package filter

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"survivaldash/domain/query"
	"survivaldash/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	distinct map[string][]any
	bounds   map[string][2]float64
	err      error
}

func (s stubSource) Distinct(_ context.Context, column string) ([]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.distinct[column], nil
}

func (s stubSource) Bounds(_ context.Context, column string) (float64, float64, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	b := s.bounds[column]
	return b[0], b[1], nil
}

func titanicSource() stubSource {
	return stubSource{
		distinct: map[string][]any{
			"SEX":      {"female", "male"},
			"PCLASS":   {int64(1), int64(2), int64(3)},
			"EMBARKED": {"C", "Q", "S"},
		},
		bounds: map[string][2]float64{
			"AGE":  {0.42, 80},
			"FARE": {0, 512.3292},
		},
	}
}

func loadedCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(DefaultDefinitions()...)
	require.NoError(t, err)
	require.NoError(t, c.LoadOptions(context.Background(), titanicSource()))
	return c
}

func submittedForm() url.Values {
	return url.Values{
		"gender_selectbox": {"female"},
		"age_slider_low":   {"1"},
		"age_slider_high":  {"40"},
		"fare_slider_low":  {"15"},
		"fare_slider_high": {"100"},
		"class_selectbox":  {"1"},
		"port_multiselect": {"C", "S"},
	}
}

func TestNewCatalogRejectsBadDefinitions(t *testing.T) {
	_, err := NewCatalog(Definition{HumanName: "Age", TableColumn: "AGE", WidgetID: "a", WidgetType: "dial"})
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))

	dup := Definition{HumanName: "Age", TableColumn: "AGE", WidgetID: "a", WidgetType: SelectSlider}
	_, err = NewCatalog(dup, dup)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoadOptions(t *testing.T) {
	c := loadedCatalog(t)
	set := c.NewSet()

	byName := map[string]*Filter{}
	for _, f := range set.Filters() {
		byName[f.HumanName] = f
	}
	assert.Equal(t, []any{"female", "male"}, byName["Gender"].Options().Choices)
	assert.Equal(t, 80.0, byName["Age"].Options().Max)
	assert.Equal(t, []string{"Gender", "Age", "Fare", "Class", "Port of Departure"}, set.Names())
}

func TestLoadOptionsPropagatesErrors(t *testing.T) {
	c, err := NewCatalog(DefaultDefinitions()...)
	require.NoError(t, err)
	err = c.LoadOptions(context.Background(), stubSource{err: fmt.Errorf("warehouse down")})
	assert.ErrorContains(t, err, "warehouse down")
}

func TestNoFilterEnabled(t *testing.T) {
	set := loadedCatalog(t).NewSet()
	assert.False(t, set.AnyEnabled())

	require.NoError(t, set.Capture(submittedForm()))
	p, err := set.Predicate()
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestPredicateBeforeSubmission(t *testing.T) {
	set := loadedCatalog(t).NewSet()
	require.NoError(t, set.Enable("Gender"))

	_, err := set.Predicate()
	assert.Equal(t, errors.CodeNotSubmitted, errors.GetCode(err))
}

func TestEnableUnknownFilter(t *testing.T) {
	set := loadedCatalog(t).NewSet()
	err := set.Enable("Cabin")
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestPredicateVariants(t *testing.T) {
	set := loadedCatalog(t).NewSet()
	require.NoError(t, set.Enable(set.Names()...))
	require.NoError(t, set.Capture(submittedForm()))

	want := map[string]query.Expr{
		"Gender":            query.Eq{Column: "SEX", Value: "female"},
		"Age":               query.Between{Column: "AGE", Low: 1, High: 40},
		"Fare":              query.Between{Column: "FARE", Low: 15, High: 100},
		"Class":             query.Eq{Column: "PCLASS", Value: int64(1)},
		"Port of Departure": query.In{Column: "EMBARKED", Values: []any{"C", "S"}},
	}
	for _, f := range set.Filters() {
		p, err := f.Predicate()
		require.NoError(t, err)
		assert.Equal(t, want[f.HumanName], p, f.HumanName)
	}
}

// Every subset of enabled filters, enabled in any order, yields exactly the
// conjunction of that subset's predicates.
func TestPredicateIsConjunctionOfEnabledSubset(t *testing.T) {
	c := loadedCatalog(t)
	names := c.NewSet().Names()

	for mask := 0; mask < 1<<len(names); mask++ {
		var subset []string
		for i, n := range names {
			if mask&(1<<i) != 0 {
				subset = append(subset, n)
			}
		}

		forward := c.NewSet()
		require.NoError(t, forward.Enable(subset...))
		require.NoError(t, forward.Capture(submittedForm()))

		reversed := c.NewSet()
		for i := len(subset) - 1; i >= 0; i-- {
			require.NoError(t, reversed.Enable(subset[i]))
		}
		require.NoError(t, reversed.Capture(submittedForm()))

		var terms []query.Expr
		for _, f := range forward.Active() {
			p, err := f.Predicate()
			require.NoError(t, err)
			terms = append(terms, p)
		}
		want := query.And(terms...)

		got1, err := forward.Predicate()
		require.NoError(t, err)
		got2, err := reversed.Predicate()
		require.NoError(t, err)

		if len(subset) == 0 {
			assert.Nil(t, got1)
			assert.Nil(t, got2)
			continue
		}
		assert.Equal(t, query.Inline(want), query.Inline(got1), "subset %v", subset)
		assert.Equal(t, query.Inline(got1), query.Inline(got2), "subset %v", subset)
	}
}

func TestCaptureValidation(t *testing.T) {
	tests := []struct {
		name   string
		enable string
		form   url.Values
	}{
		{"unknown choice", "Gender", url.Values{"gender_selectbox": {"other"}}},
		{"missing choice", "Class", url.Values{}},
		{"unknown port", "Port of Departure", url.Values{"port_multiselect": {"X"}}},
		{"range above max", "Age", url.Values{"age_slider_low": {"1"}, "age_slider_high": {"120"}}},
		{"not a number", "Fare", url.Values{"fare_slider_low": {"cheap"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := loadedCatalog(t).NewSet()
			require.NoError(t, set.Enable(tt.enable))
			err := set.Capture(tt.form)
			assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
		})
	}
}

func TestSliderDefaultsAndSwap(t *testing.T) {
	set := loadedCatalog(t).NewSet()
	require.NoError(t, set.Enable("Age"))
	require.NoError(t, set.Capture(url.Values{"age_slider_low": {"60"}, "age_slider_high": {"10"}}))

	p, err := set.Predicate()
	require.NoError(t, err)
	assert.Equal(t, query.Between{Column: "AGE", Low: 10, High: 60}, p)

	set = loadedCatalog(t).NewSet()
	require.NoError(t, set.Enable("Age"))
	require.NoError(t, set.Capture(url.Values{}))
	p, err = set.Predicate()
	require.NoError(t, err)
	assert.Equal(t, query.Between{Column: "AGE", Low: 0.42, High: 80}, p)
}

func TestWidgetDescriptor(t *testing.T) {
	set := loadedCatalog(t).NewSet()
	require.NoError(t, set.Enable("Class", "Port of Departure"))

	for _, f := range set.Active() {
		w := f.Widget()
		switch w.ID {
		case "class_selectbox":
			assert.Equal(t, []string{"1", "2", "3"}, w.Choices)
			assert.Equal(t, []string{"1"}, w.Selected)
		case "port_multiselect":
			assert.Equal(t, []string{"C", "Q", "S"}, w.Selected)
		}
	}

	require.NoError(t, set.Capture(url.Values{"class_selectbox": {"3"}, "port_multiselect": {"Q"}}))
	for _, f := range set.Active() {
		w := f.Widget()
		switch w.ID {
		case "class_selectbox":
			assert.Equal(t, []string{"3"}, w.Selected)
		case "port_multiselect":
			assert.Equal(t, []string{"Q"}, w.Selected)
		}
	}
}

func TestSetsAreIndependent(t *testing.T) {
	c := loadedCatalog(t)
	a := c.NewSet()
	require.NoError(t, a.Enable("Gender"))

	b := c.NewSet()
	assert.False(t, b.AnyEnabled())
}
