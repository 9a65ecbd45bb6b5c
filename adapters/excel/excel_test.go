package excel

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"survivaldash/internal/errors"
	"survivaldash/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const titanicCSV = `PassengerId,Survived,Pclass,Name,Sex,Age,SibSp,Parch,Ticket,Fare,Cabin,Embarked
1,0,3,"Braund, Mr. Owen Harris",male,22,1,0,A/5 21171,7.25,,S
2,1,1,"Cumings, Mrs. John Bradley (Florence Briggs Thayer)",female,38,1,0,PC 17599,71.2833,C85,C
6,0,3,"Moran, Mr. James",male,,0,0,330877,8.4583,,Q
`

func TestReadCSVPassengers(t *testing.T) {
	data, err := ReadCSV(strings.NewReader(titanicCSV))
	require.NoError(t, err)
	assert.Len(t, data.Headers, 12)

	rows, err := data.Passengers()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.EqualValues(t, 1, rows[0].PassengerID)
	assert.Equal(t, "Braund, Mr. Owen Harris", rows[0].Name)
	assert.Equal(t, 22.0, rows[0].Age.Float64)
	assert.False(t, rows[0].Cabin.Valid)
	assert.Equal(t, "S", rows[0].Embarked.String)

	assert.Equal(t, "female", rows[1].Sex)
	assert.Equal(t, "C85", rows[1].Cabin.String)
	assert.InDelta(t, 71.2833, rows[1].Fare, 1e-9)

	assert.False(t, rows[2].Age.Valid)
	assert.EqualValues(t, 3, rows[2].Pclass)
}

func TestPassengersRejectsBadRows(t *testing.T) {
	data, err := ReadCSV(strings.NewReader("PassengerId,Survived,Pclass,Sex\n1,x,3,male\n"))
	require.NoError(t, err)
	_, err = data.Passengers()
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	data, err = ReadCSV(strings.NewReader("PassengerId,Pclass\n1,3\n"))
	require.NoError(t, err)
	_, err = data.Passengers()
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestReadCSVNeedsDataRow(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("PassengerId,Survived\n"))
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestReadDataMissingFile(t *testing.T) {
	_, err := NewDataReader(filepath.Join(t.TempDir(), "missing.csv")).ReadData()
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestWriteReportRoundTripsThroughXLSXReader(t *testing.T) {
	var buf bytes.Buffer
	err := WriteReport(&buf, Report{
		Column: "SURVIVED",
		Groups: []ports.GroupCount{{Key: int64(0), Count: 549}, {Key: int64(1), Count: 342}},
		Query:  `SELECT * FROM "TITANIC"`,
		Summary: []SummaryLine{
			{Label: "Rows", Value: 891},
		},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(path))
	f.Close()

	data, err := NewDataReader(path).ReadData()
	require.NoError(t, err)
	assert.Equal(t, []string{"SURVIVED", "COUNT"}, data.Headers)
	assert.Equal(t, RawRowData{"SURVIVED": "1", "COUNT": "342"}, data.Rows[1])

	f, err = excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	query, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "TITANIC"`, query)
}
