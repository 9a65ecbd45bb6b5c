package app

import (
	"context"
	"math"
	"net/url"

	"survivaldash/domain/dataset"
	"survivaldash/domain/filter"
	"survivaldash/internal"
	"survivaldash/internal/errors"
	"survivaldash/ports"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// EnableFilterPrompt is shown instead of a chart when no filter is enabled.
const EnableFilterPrompt = "Please enable a filter"

// AnalysisService drives the survival analysis page: it builds the request's
// filter set, applies the submitted predicate to the source table and
// aggregates the outcome.
type AnalysisService struct {
	session ports.WarehouseSession
	catalog *filter.Catalog
	table   string
	logger  *internal.Logger
}

// AnalysisRequest is one page interaction.
type AnalysisRequest struct {
	// Enabled holds the human names of the filters the user switched on.
	Enabled []string
	// Form carries the widget values keyed by widget id.
	Form      url.Values
	Submitted bool
}

// CohortSummary describes the rows behind the chart.
type CohortSummary struct {
	Rows         int64    `json:"rows"`
	Survivors    int64    `json:"survivors"`
	SurvivalRate float64  `json:"survival_rate"`
	RateLow      float64  `json:"rate_low"`
	RateHigh     float64  `json:"rate_high"`
	MedianAge    *float64 `json:"median_age,omitempty"`
	MedianFare   *float64 `json:"median_fare,omitempty"`
}

// AnalysisResult is everything the page renders.
type AnalysisResult struct {
	Filters   []string           `json:"filters"`
	Enabled   []string           `json:"enabled"`
	Widgets   []filter.Widget    `json:"widgets"`
	Prompt    string             `json:"prompt,omitempty"`
	Submitted bool               `json:"submitted"`
	Groups    []ports.GroupCount `json:"groups,omitempty"`
	Query     string             `json:"query,omitempty"`
	Summary   *CohortSummary     `json:"summary,omitempty"`
}

// NewAnalysisService creates the analysis service over the named table.
func NewAnalysisService(session ports.WarehouseSession, catalog *filter.Catalog, table string, logger *internal.Logger) *AnalysisService {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &AnalysisService{session: session, catalog: catalog, table: table, logger: logger}
}

// Catalog returns the filter catalog the service builds sets from.
func (s *AnalysisService) Catalog() *filter.Catalog {
	return s.catalog
}

// Run evaluates one page interaction. With no filter enabled it returns the
// prompt and no data. Enabled filters only restrict the data once the form
// has been submitted.
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*AnalysisResult, error) {
	set := s.catalog.NewSet()
	if err := set.Enable(req.Enabled...); err != nil {
		return nil, err
	}

	result := &AnalysisResult{Filters: set.Names(), Submitted: req.Submitted}
	for _, f := range set.Active() {
		result.Enabled = append(result.Enabled, f.HumanName)
	}

	if !set.AnyEnabled() {
		result.Prompt = EnableFilterPrompt
		return result, nil
	}

	handle := s.session.Table(s.table)
	if req.Submitted {
		if err := set.Capture(req.Form); err != nil {
			return nil, err
		}
		pred, err := set.Predicate()
		if err != nil {
			return nil, err
		}
		handle = handle.Where(pred)
	}
	for _, f := range set.Active() {
		result.Widgets = append(result.Widgets, f.Widget())
	}

	var (
		ages, fares []float64
		g, gctx     = errgroup.WithContext(ctx)
	)
	g.Go(func() (err error) {
		result.Groups, err = handle.GroupByCount(gctx, dataset.OutcomeColumn)
		return err
	})
	g.Go(func() (err error) {
		ages, err = handle.Floats(gctx, "AGE")
		return err
	})
	g.Go(func() (err error) {
		fares, err = handle.Floats(gctx, "FARE")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "analysis query failed")
	}

	if queries := handle.Queries(); len(queries) > 0 {
		result.Query = queries[0]
	}
	result.Summary = summarize(result.Groups, ages, fares)

	s.logger.Debug("analysis enabled=%v submitted=%t query=%q", result.Enabled, req.Submitted, result.Query)
	return result, nil
}

// summarize computes the cohort's survival rate with a 95% Wilson score
// interval, and the median age and fare.
func summarize(groups []ports.GroupCount, ages, fares []float64) *CohortSummary {
	sum := &CohortSummary{}
	for _, g := range groups {
		sum.Rows += g.Count
		if isSurvivedKey(g.Key) {
			sum.Survivors += g.Count
		}
	}
	if sum.Rows > 0 {
		sum.SurvivalRate = float64(sum.Survivors) / float64(sum.Rows)
		sum.RateLow, sum.RateHigh = wilsonInterval(sum.Survivors, sum.Rows, 0.95)
	}
	sum.MedianAge = median(ages)
	sum.MedianFare = median(fares)
	return sum
}

func wilsonInterval(successes, n int64, confidence float64) (float64, float64) {
	z := distuv.UnitNormal.Quantile(1 - (1-confidence)/2)
	p := float64(successes) / float64(n)
	nf := float64(n)
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}

func median(values []float64) *float64 {
	m, err := stats.Median(values)
	if err != nil {
		return nil
	}
	return &m
}

func isSurvivedKey(key any) bool {
	switch k := key.(type) {
	case int64:
		return k == 1
	case float64:
		return k == 1
	case string:
		return k == "1"
	case bool:
		return k
	}
	return false
}
