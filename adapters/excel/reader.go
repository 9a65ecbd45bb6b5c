package excel

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"survivaldash/domain/dataset"
	"survivaldash/internal/errors"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV passenger files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadData reads the first sheet (or the CSV file) into rows keyed by header.
func (r *DataReader) ReadData() (*ExcelData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, errors.NotFound(fmt.Sprintf("%s file %s", strings.ToUpper(r.fileType), r.filePath))
	}

	switch r.fileType {
	case "csv":
		f, err := os.Open(r.filePath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open CSV file")
		}
		defer f.Close()
		return ReadCSV(f)
	default:
		return r.readExcelData()
	}
}

func (r *DataReader) readExcelData() (*ExcelData, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.InvalidInput("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", sheets[0])
	}
	return processRows(rows, "Excel")
}

// ReadCSV reads CSV data with a header row.
func ReadCSV(in io.Reader) (*ExcelData, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, errors.Wrap(err, "failed to read CSV"))
	}
	return processRows(rows, "CSV")
}

// processRows converts raw string rows into ExcelData format
func processRows(rows [][]string, kind string) (*ExcelData, error) {
	if len(rows) < 2 {
		return nil, errors.InvalidInput(kind + " file must have at least a header row and one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rowData := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &ExcelData{Headers: headers, Rows: dataRows}, nil
}

// Passengers maps rows onto passenger records. Headers match the table's
// columns case-insensitively, so the usual "PassengerId, Survived, ..."
// header works as is. Empty Age, Cabin and Embarked cells become NULL.
func (d *ExcelData) Passengers() ([]dataset.Passenger, error) {
	byColumn := make(map[string]string, len(d.Headers))
	for _, h := range d.Headers {
		byColumn[strings.ToUpper(h)] = h
	}
	for _, required := range []string{"PASSENGERID", "SURVIVED", "PCLASS", "SEX"} {
		if _, ok := byColumn[required]; !ok {
			return nil, errors.InvalidInput(fmt.Sprintf("missing column %s", required))
		}
	}

	out := make([]dataset.Passenger, 0, len(d.Rows))
	for i, row := range d.Rows {
		line := i + 2
		cell := func(col string) string { return row[byColumn[col]] }

		p := dataset.Passenger{
			Name:   cell("NAME"),
			Sex:    strings.ToLower(cell("SEX")),
			Ticket: cell("TICKET"),
		}
		var err error
		if p.PassengerID, err = parseInt(cell("PASSENGERID"), line, "PassengerId", true); err != nil {
			return nil, err
		}
		if p.Survived, err = parseInt(cell("SURVIVED"), line, "Survived", true); err != nil {
			return nil, err
		}
		if p.Pclass, err = parseInt(cell("PCLASS"), line, "Pclass", true); err != nil {
			return nil, err
		}
		if p.SibSp, err = parseInt(cell("SIBSP"), line, "SibSp", false); err != nil {
			return nil, err
		}
		if p.Parch, err = parseInt(cell("PARCH"), line, "Parch", false); err != nil {
			return nil, err
		}
		if p.Age, err = parseNullFloat(cell("AGE"), line, "Age"); err != nil {
			return nil, err
		}
		fare, err := parseNullFloat(cell("FARE"), line, "Fare")
		if err != nil {
			return nil, err
		}
		p.Fare = fare.Float64
		p.Cabin = nullString(cell("CABIN"))
		p.Embarked = nullString(cell("EMBARKED"))

		out = append(out, p)
	}
	return out, nil
}

func parseInt(raw string, line int, name string, required bool) (int64, error) {
	if raw == "" {
		if required {
			return 0, errors.InvalidInput(fmt.Sprintf("line %d: %s is required", line, name))
		}
		return 0, nil
	}
	// Spreadsheets often store integers as "3.0".
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("line %d: %s %q is not a number", line, name, raw))
	}
	return int64(f), nil
}

func parseNullFloat(raw string, line int, name string) (sql.NullFloat64, error) {
	if raw == "" {
		return sql.NullFloat64{}, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return sql.NullFloat64{}, errors.InvalidInput(fmt.Sprintf("line %d: %s %q is not a number", line, name, raw))
	}
	return sql.NullFloat64{Float64: f, Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
