// Package filter implements the dynamic filter widgets of the analysis page:
// named, independently enableable predicate generators bound to table columns.
package filter

import (
	"fmt"
	"strconv"

	"survivaldash/domain/query"
	"survivaldash/internal/errors"
)

// WidgetType is the kind of input control a filter renders.
type WidgetType string

const (
	// Selectbox picks one value and yields an equality predicate.
	Selectbox WidgetType = "selectbox"
	// SelectSlider picks an inclusive numeric range.
	SelectSlider WidgetType = "select_slider"
	// MultiSelect picks a set of values and yields a membership predicate.
	MultiSelect WidgetType = "multiselect"
)

// Valid reports whether t is a known widget type.
func (t WidgetType) Valid() bool {
	switch t {
	case Selectbox, SelectSlider, MultiSelect:
		return true
	}
	return false
}

// Definition is the static description of a filter.
type Definition struct {
	HumanName   string     `json:"human_name"`
	TableColumn string     `json:"table_column"`
	WidgetID    string     `json:"widget_id"`
	WidgetType  WidgetType `json:"widget_type"`
}

// Options are the values a widget may offer, loaded from the table.
type Options struct {
	Choices []any   `json:"choices,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Value is what the user submitted for one widget.
type Value struct {
	Choice  any
	Choices []any
	Low     float64
	High    float64
}

// Filter is one filter within a request. It is not safe for concurrent use.
type Filter struct {
	Definition
	options  Options
	enabled  bool
	captured *Value
}

func newFilter(def Definition, opts Options) *Filter {
	return &Filter{Definition: def, options: opts}
}

// Enable, Disable and IsEnabled toggle whether the filter contributes to the
// set's predicate.
func (f *Filter) Enable()         { f.enabled = true }
func (f *Filter) Disable()        { f.enabled = false }
func (f *Filter) IsEnabled() bool { return f.enabled }

// Options returns the choices or bounds the widget offers.
func (f *Filter) Options() Options { return f.options }

// Capture stores the submitted value.
func (f *Filter) Capture(v Value) {
	f.captured = &v
}

// CapturedValue returns the submitted value, if any.
func (f *Filter) CapturedValue() (Value, bool) {
	if f.captured == nil {
		return Value{}, false
	}
	return *f.captured, true
}

// Predicate compares the table column to the captured value. It fails with
// NOT_SUBMITTED until a value has been captured.
func (f *Filter) Predicate() (query.Expr, error) {
	if f.captured == nil {
		return nil, errors.NotSubmitted(fmt.Sprintf("filter %q has no submitted value", f.HumanName))
	}
	v := f.captured
	switch f.WidgetType {
	case Selectbox:
		return query.Eq{Column: f.TableColumn, Value: v.Choice}, nil
	case SelectSlider:
		return query.Between{Column: f.TableColumn, Low: v.Low, High: v.High}, nil
	case MultiSelect:
		vals := make([]any, len(v.Choices))
		copy(vals, v.Choices)
		return query.In{Column: f.TableColumn, Values: vals}, nil
	default:
		return nil, errors.InternalError(fmt.Sprintf("unknown widget type %q", f.WidgetType))
	}
}

// Widget describes the input control for rendering.
type Widget struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Type     WidgetType `json:"type"`
	Choices  []string   `json:"choices,omitempty"`
	Selected []string   `json:"selected,omitempty"`
	Min      float64    `json:"min"`
	Max      float64    `json:"max"`
	Low      float64    `json:"low"`
	High     float64    `json:"high"`
}

// Widget returns the render descriptor. Selections default to the first
// choice, every choice, or the full range, and reflect the captured value
// once one exists.
func (f *Filter) Widget() Widget {
	w := Widget{
		ID:    f.WidgetID,
		Label: f.HumanName,
		Type:  f.WidgetType,
		Min:   f.options.Min,
		Max:   f.options.Max,
		Low:   f.options.Min,
		High:  f.options.Max,
	}
	for _, c := range f.options.Choices {
		w.Choices = append(w.Choices, choiceKey(c))
	}

	switch f.WidgetType {
	case Selectbox:
		if f.captured != nil {
			w.Selected = []string{choiceKey(f.captured.Choice)}
		} else if len(w.Choices) > 0 {
			w.Selected = w.Choices[:1]
		}
	case MultiSelect:
		if f.captured != nil {
			for _, c := range f.captured.Choices {
				w.Selected = append(w.Selected, choiceKey(c))
			}
		} else {
			w.Selected = w.Choices
		}
	case SelectSlider:
		if f.captured != nil {
			w.Low, w.High = f.captured.Low, f.captured.High
		}
	}
	return w
}

// LowKey and HighKey are the form field names of a slider's bounds.
func LowKey(widgetID string) string  { return widgetID + "_low" }
func HighKey(widgetID string) string { return widgetID + "_high" }

func choiceKey(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
