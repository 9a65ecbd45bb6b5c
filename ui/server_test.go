package ui

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"survivaldash/domain/prediction"
	"survivaldash/internal/api"
	"survivaldash/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	kit := testkit.New(t)
	srv, err := NewServer(Deps{
		Analysis:   kit.Analysis,
		Prediction: kit.Prediction,
		API:        api.NewRouter(kit.Analysis, kit.Prediction, nil),
		Health:     kit.Session.Ping,
		GinMode:    gin.TestMode,
	})
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func postForm(t *testing.T, srv *Server, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHomePage(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `src="/static/titanic.svg"`)
	assert.Contains(t, body, "<strong>Survival analysis</strong>")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestStaticFiles(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".snow")
}

func TestAnalysisPromptWithoutFilters(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/analysis")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Please enable a filter")
	assert.NotContains(t, body, "<svg")
	assert.NotContains(t, body, "Generated query")
}

func TestAnalysisEnabledShowsWidgetsAndUnfilteredChart(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/analysis?filters=Gender&filters=Age")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `name="gender_selectbox"`)
	assert.Contains(t, body, `name="age_slider_low"`)
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "SELECT * FROM &#34;TITANIC&#34;</code>")
	assert.Contains(t, body, "Showing every passenger")
}

func TestAnalysisSubmitted(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(t, srv, "/analysis", url.Values{
		"filters":          {"Gender"},
		"gender_selectbox": {"female"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "WHERE &#34;SEX&#34; = &#39;female&#39;")
	assert.Contains(t, body, "<svg")
	assert.Contains(t, body, "100.0%")
	assert.Contains(t, body, "/analysis/export.xlsx?")
	assert.NotContains(t, body, "Showing every passenger")
}

func TestAnalysisInvalidValue(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(t, srv, "/analysis", url.Values{
		"filters":         {"Class"},
		"class_selectbox": {"9"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="error"`)
}

func TestAnalysisExport(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/analysis/export.xlsx?filters=Gender&gender_selectbox=male&submitted=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "survival-analysis.xlsx")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Counts")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"SURVIVED", "COUNT"}, {"0", "6"}}, rows)

	rec = get(t, srv, "/analysis/export.xlsx")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictForm(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/predict")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, fmt.Sprintf(`name="age" min="%d" max="%d" step="1" value="%d"`,
		prediction.MinAge, prediction.MaxAge, prediction.DefaultAge))
	assert.Contains(t, body, "Queenstown, Ireland")
	assert.NotContains(t, body, `class="verdict`)
	assert.Contains(t, body, "Choose your parameters above and see if you will survive!")
}

func TestPredictSurvives(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(t, srv, "/predict", url.Values{
		"sex": {"female"}, "age": {"4"}, "pclass": {"1"}, "fare": {"100"}, "embarked": {"Cherbourg, France"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h3>Congrats, you will probably survive!</h3>")
	assert.Contains(t, body, `class="snow"`)
	assert.NotContains(t, body, "Choose your parameters")
}

func TestPredictPerishes(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(t, srv, "/predict", url.Values{
		"sex": {"male"}, "age": {"40"}, "pclass": {"3"}, "fare": {"15"}, "embarked": {"Southampton, U.K."},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h3>Oh no, the stars are not aligned in your favour!</h3>")
	assert.NotContains(t, body, `class="snow"`)
}

func TestPredictRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	rec := postForm(t, srv, "/predict", url.Values{
		"sex": {"female"}, "age": {"old"}, "pclass": {"1"}, "fare": {"100"}, "embarked": {"C"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Choose your parameters")

	rec = postForm(t, srv, "/predict", url.Values{
		"sex": {"female"}, "age": {"30"}, "pclass": {"1"}, "fare": {"9000"}, "embarked": {"C"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	down, err := NewServer(Deps{
		Analysis:   srv.analysis,
		Prediction: srv.prediction,
		Health:     func(context.Context) error { return fmt.Errorf("connection refused") },
		GinMode:    gin.TestMode,
	})
	require.NoError(t, err)
	rec = get(t, down, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIMounted(t *testing.T) {
	srv := newTestServer(t)

	rec := get(t, srv, "/api/filters")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"human_name":"Port of Departure"`)
}

func TestOutcomeChart(t *testing.T) {
	_, err := renderOutcomeChart(nil)
	assert.Error(t, err)
}
