package excel

import (
	"fmt"
	"io"

	"survivaldash/internal/errors"
	"survivaldash/ports"

	"github.com/xuri/excelize/v2"
)

// Report is an aggregate exported as a workbook: one sheet with the outcome
// counts and one with the query and summary figures.
type Report struct {
	Column  string
	Groups  []ports.GroupCount
	Query   string
	Summary []SummaryLine
}

// SummaryLine is one labelled figure of the summary sheet.
type SummaryLine struct {
	Label string
	Value any
}

const (
	countsSheet  = "Counts"
	summarySheet = "Summary"
)

// WriteReport writes r as an XLSX workbook to w.
func WriteReport(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", countsSheet); err != nil {
		return errors.Wrap(err, "failed to name counts sheet")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}

	if err := f.SetSheetRow(countsSheet, "A1", &[]any{r.Column, "COUNT"}); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	if err := f.SetCellStyle(countsSheet, "A1", "B1", bold); err != nil {
		return errors.Wrap(err, "failed to style header")
	}
	for i, g := range r.Groups {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(countsSheet, cell, &[]any{g.Key, g.Count}); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+2)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return errors.Wrap(err, "failed to add summary sheet")
	}
	lines := append([]SummaryLine{{Label: "Query", Value: r.Query}}, r.Summary...)
	for i, l := range lines {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(summarySheet, cell, &[]any{l.Label, l.Value}); err != nil {
			return errors.Wrapf(err, "failed to write summary %s", l.Label)
		}
		if err := f.SetCellStyle(summarySheet, cell, cell, bold); err != nil {
			return errors.Wrap(err, "failed to style summary")
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}
