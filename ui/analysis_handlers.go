package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"survivaldash/adapters/excel"
	"survivaldash/app"
	"survivaldash/domain/dataset"
	"survivaldash/internal/errors"

	"github.com/gin-gonic/gin"
)

// filtersField is the multiselect listing the enabled filters by name.
const filtersField = "filters"

// handleAnalysis renders the analysis page. GET toggles which filters are
// enabled; POST submits the enabled filters' values.
func (s *Server) handleAnalysis(c *gin.Context) {
	data := gin.H{
		"Title":       "Survival analysis",
		"Page":        "analysis",
		"FilterNames": s.filterNames(),
	}
	if err := c.Request.ParseForm(); err != nil {
		s.renderError(c, "analysis.html", data, errors.InvalidInput("malformed form"))
		return
	}
	form := c.Request.Form
	submitted := c.Request.Method == http.MethodPost
	data["Enabled"] = form[filtersField]

	result, err := s.analysis.Run(c.Request.Context(), app.AnalysisRequest{
		Enabled:   form[filtersField],
		Form:      form,
		Submitted: submitted,
	})
	if err != nil {
		s.renderError(c, "analysis.html", data, err)
		return
	}
	data["Result"] = result

	if len(result.Groups) > 0 {
		svg, err := renderOutcomeChart(result.Groups)
		if err != nil {
			s.logger.Warn("chart: %v", err)
		} else {
			data["Chart"] = template.HTML(svg)
		}
		data["ExportURL"] = exportURL(form, submitted)
	}

	s.renderTemplate(c, http.StatusOK, "analysis.html", data)
}

// handleAnalysisExport downloads the current aggregate as a workbook. It
// takes the same fields as the page, plus submitted=1 for filtered data.
func (s *Server) handleAnalysisExport(c *gin.Context) {
	form := c.Request.URL.Query()
	result, err := s.analysis.Run(c.Request.Context(), app.AnalysisRequest{
		Enabled:   form[filtersField],
		Form:      form,
		Submitted: form.Get("submitted") == "1",
	})
	if err == nil && result.Prompt != "" {
		err = errors.InvalidInput(result.Prompt)
	}
	if err != nil {
		c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error(), "code": errors.GetCode(err)})
		return
	}

	report := excel.Report{
		Column: dataset.OutcomeColumn,
		Groups: result.Groups,
		Query:  result.Query,
	}
	if sum := result.Summary; sum != nil {
		report.Summary = []excel.SummaryLine{
			{Label: "Rows", Value: sum.Rows},
			{Label: "Survivors", Value: sum.Survivors},
			{Label: "Survival rate", Value: sum.SurvivalRate},
			{Label: "95% interval low", Value: sum.RateLow},
			{Label: "95% interval high", Value: sum.RateHigh},
		}
		if sum.MedianAge != nil {
			report.Summary = append(report.Summary, excel.SummaryLine{Label: "Median age", Value: *sum.MedianAge})
		}
		if sum.MedianFare != nil {
			report.Summary = append(report.Summary, excel.SummaryLine{Label: "Median fare", Value: *sum.MedianFare})
		}
	}

	var buf bytes.Buffer
	if err := excel.WriteReport(&buf, report); err != nil {
		s.logger.Error("export: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="survival-analysis.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (s *Server) filterNames() []string {
	defs := s.analysis.Catalog().Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.HumanName
	}
	return names
}

func exportURL(form url.Values, submitted bool) string {
	v := url.Values{}
	for k, vals := range form {
		if k != "submitted" {
			v[k] = vals
		}
	}
	if submitted {
		v.Set("submitted", "1")
	}
	return fmt.Sprintf("/analysis/export.xlsx?%s", v.Encode())
}
