package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"survivaldash/app"
	"survivaldash/domain/prediction"
	"survivaldash/internal/errors"
	"survivaldash/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	kit := testkit.New(t)
	return NewRouter(kit.Analysis, kit.Prediction, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListFilters(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/api/filters", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var filters []FilterInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filters))
	require.Len(t, filters, 5)
	assert.Equal(t, "Gender", filters[0].HumanName)
	assert.Equal(t, []string{"female", "male"}, filters[0].Widget.Choices)
	assert.Equal(t, "select_slider", string(filters[1].WidgetType))
	assert.Equal(t, 2.0, filters[1].Widget.Min)
	assert.Equal(t, 54.0, filters[1].Widget.Max)
	assert.Equal(t, []string{"C", "Q", "S"}, filters[4].Widget.Choices)
}

func TestAnalysisWithoutFilters(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/analysis", `{"submitted": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res app.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, app.EnableFilterPrompt, res.Prompt)
	assert.Empty(t, res.Groups)
}

func TestAnalysisSubmitted(t *testing.T) {
	h := newTestRouter(t)

	body := `{
		"enabled": ["Gender", "Port of Departure"],
		"values": {"gender_selectbox": ["male"], "port_multiselect": ["Q"]},
		"submitted": true
	}`
	rec := do(t, h, http.MethodPost, "/api/analysis", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res app.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, `SELECT * FROM "TITANIC" WHERE ("EMBARKED" IN ('Q')) AND ("SEX" = 'male')`, res.Query)
	require.Len(t, res.Groups, 1)
	assert.EqualValues(t, 2, res.Groups[0].Count)
	require.NotNil(t, res.Summary)
	assert.EqualValues(t, 0, res.Summary.Survivors)
}

func TestAnalysisRejectsUnknownChoice(t *testing.T) {
	h := newTestRouter(t)

	body := `{"enabled": ["Gender"], "values": {"gender_selectbox": ["robot"]}, "submitted": true}`
	rec := do(t, h, http.MethodPost, "/api/analysis", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var e errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, errors.CodeInvalidInput, e.Code)
}

func TestAnalysisMalformedBody(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/analysis", `{"enabled": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisRequiresJSON(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/analysis", strings.NewReader("enabled=Gender"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestPredict(t *testing.T) {
	h := newTestRouter(t)
	body := `{"sex": "female", "age": 4, "pclass": 1, "fare": 100, "embarked": "Cherbourg, France"}`

	rec := do(t, h, http.MethodPost, "/api/predict", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out prediction.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Survived)
	assert.Equal(t, prediction.SurvivedMessage, out.Message)
	assert.False(t, out.Cached)

	rec = do(t, h, http.MethodPost, "/api/predict", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Cached)
}

func TestPredictInvalid(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/api/predict", `{"sex": "female", "age": 120, "pclass": 1, "fare": 100, "embarked": "C"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
