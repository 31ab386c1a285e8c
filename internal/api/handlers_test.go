package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mlviz/internal/chart"
	"mlviz/internal/dataset"
	"mlviz/internal/models"
	"mlviz/internal/service"
	"mlviz/internal/state"
	"mlviz/internal/testutil"
)

type fakeSource struct {
	tables     []string
	data       *dataset.Dataset
	connectErr error
	closed     bool
}

func (f *fakeSource) Connect(context.Context, service.DataSourceConfig) error { return f.connectErr }
func (f *fakeSource) Close() error                                            { f.closed = true; return nil }
func (f *fakeSource) ListTables(context.Context) ([]string, error)            { return f.tables, nil }
func (f *fakeSource) PreviewData(_ context.Context, table string, _ int) (*dataset.Dataset, error) {
	for _, t := range f.tables {
		if t == table {
			return f.data, nil
		}
	}
	return nil, service.ErrUnknownTable
}

type testEnv struct {
	server      *httptest.Server
	client      *http.Client
	uploadDir   string
	downloadDir string
	source      *fakeSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		uploadDir:   t.TempDir(),
		downloadDir: t.TempDir(),
		source:      &fakeSource{},
	}
	logger := testutil.NewTestLogger(t)
	h := NewHandler(logger, chart.NewDispatcher(logger),
		state.New(state.NewCookieStore("test-secret-key-32-bytes-long!!", 3600)),
		Options{
			UploadDir:      env.uploadDir,
			DownloadDir:    env.downloadDir,
			MaxFileSize:    1 << 20,
			DBPreviewLimit: 100,
			NewDataSource:  func() service.DataSource { return env.source },
		})
	env.server = httptest.NewServer(NewRouter(h, []string{"http://localhost:3000"}))
	t.Cleanup(env.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{Jar: jar}
	return env
}

func (e *testEnv) upload(t *testing.T, filename, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := e.client.Post(e.server.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) postJSON(t *testing.T, path string, v interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := e.client.Post(e.server.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.client.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(b))
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t)
	resp := env.upload(t, "iris.csv", testutil.IrisCSV)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[models.UploadResponse](t, resp)
	assert.NotEmpty(t, got.UploadID)
	assert.Equal(t, "iris.csv", got.Filename)
	assert.Equal(t, 9, got.Rows)
	assert.Equal(t, 5, got.Columns)
	assert.Equal(t, []string{"sepal_length", "sepal_width", "petal_length"}, got.NumericColumns)
	assert.FileExists(t, env.uploadDir+"/"+got.UploadID+".csv")
}

func TestUploadRejects(t *testing.T) {
	env := newTestEnv(t)

	resp := env.upload(t, "notes.txt", "a,b\n1,2\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "only CSV files are allowed", decode[models.ErrorResponse](t, resp).Error)

	resp = env.upload(t, "bad.csv", "a,b\n1,2,3\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "failed to parse CSV", decode[models.ErrorResponse](t, resp).Error)

	entries, err := os.ReadDir(env.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads are removed")
}

func TestGetColumns(t *testing.T) {
	env := newTestEnv(t)
	up := decode[models.UploadResponse](t, env.upload(t, "iris.csv", testutil.IrisCSV))

	resp, err := env.client.Get(env.server.URL + "/datasets/" + up.UploadID + "/columns")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.ColumnsResponse](t, resp)
	assert.Equal(t, up.ColumnNames, got.ColumnNames)
	require.Len(t, got.Columns, 5)
	assert.Equal(t, 1, got.Columns[4].Missing)

	resp, err = env.client.Get(env.server.URL + "/datasets/..%2Fetc/columns")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = env.client.Get(env.server.URL + "/datasets/3f1b4a52-0000-4000-8000-000000000000/columns")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVisualizeAndDownload(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "iris.csv", testutil.IrisCSV).Body.Close()

	resp := env.postJSON(t, "/visualize", models.VisualizeRequest{
		ChartType: "regression",
		Columns:   []string{"sepal_length", "petal_length"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.VisualizeResponse](t, resp)

	assert.Equal(t, "regression", got.ChartType)
	assert.Equal(t, "image/png", got.MIME)
	require.NotNil(t, got.Regression)
	assert.Equal(t, 9, got.Regression.N)
	img, err := base64.StdEncoding.DecodeString(got.Image)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))

	for _, format := range []string{"png", "pdf"} {
		resp, err := env.client.Get(env.server.URL + "/download/" + format)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "regression_")
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "."+format)
		assert.NotEmpty(t, body)
	}

	entries, err := os.ReadDir(env.downloadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestVisualizeForm(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "iris.csv", testutil.IrisCSV).Body.Close()

	resp, err := env.client.PostForm(env.server.URL+"/visualize", url.Values{
		"chart_type": {"decision_tree"},
		"columns[]":  {"sepal_length", "petal_length"},
		"target":     {"species"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.VisualizeResponse](t, resp)
	require.NotNil(t, got.Tree)
	assert.Equal(t, []string{"setosa", "versicolor", "virginica"}, got.Tree.Classes)
}

func TestVisualizeErrors(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/visualize", models.VisualizeRequest{ChartType: "scatter"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no dataset uploaded", decode[models.ErrorResponse](t, resp).Error)

	env.upload(t, "iris.csv", testutil.IrisCSV).Body.Close()

	tests := []struct {
		name   string
		req    models.VisualizeRequest
		reason chart.Reason
	}{
		{"unknown kind", models.VisualizeRequest{ChartType: "pie"}, chart.ReasonUnknownKind},
		{"one numeric", models.VisualizeRequest{ChartType: "heatmap", Columns: []string{"sepal_length", "species"}}, chart.ReasonInsufficientNumeric},
		{"no target", models.VisualizeRequest{ChartType: "decision_tree", Columns: []string{"sepal_length"}}, chart.ReasonMissingTarget},
		{"unknown column", models.VisualizeRequest{ChartType: "scatter", Columns: []string{"sepal_length", "nope"}}, chart.ReasonUnknownColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postJSON(t, "/visualize", tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, string(tt.reason), decode[models.ErrorResponse](t, resp).Error)
		})
	}
}

func TestHeatmapCorrelationInResponse(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "c.csv", "a,b,flat\n1,2,5\n2,4,5\n3,7,5\n").Body.Close()

	resp := env.postJSON(t, "/visualize", models.VisualizeRequest{ChartType: "heatmap"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[models.VisualizeResponse](t, resp)

	require.NotNil(t, got.Correlation)
	assert.Equal(t, []string{"a", "b", "flat"}, got.Correlation.Columns)
	assert.Nil(t, got.Correlation.Values[0][2], "constant column has no correlation")
	require.NotNil(t, got.Correlation.Values[0][0])
	assert.Equal(t, 1.0, *got.Correlation.Values[0][0])
}

func TestDownloadWithoutVisualization(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.Get(env.server.URL + "/download/png")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no visualization to download", decode[models.ErrorResponse](t, resp).Error)

	resp, err = env.client.Get(env.server.URL + "/download/gif")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDatabaseImport(t *testing.T) {
	env := newTestEnv(t)
	data, err := dataset.Load(strings.NewReader("x,y\n1,2\n2,4\n3,6\n"))
	require.NoError(t, err)
	env.source.tables = []string{"points"}
	env.source.data = data

	resp := env.postJSON(t, "/api/db/tables", models.TablesRequest{Config: service.DataSourceConfig{Type: "postgres"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"points"}, decode[models.TablesResponse](t, resp).Tables)
	assert.True(t, env.source.closed)

	resp = env.postJSON(t, "/api/db/import", models.ImportRequest{Table: "points"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	up := decode[models.UploadResponse](t, resp)
	assert.Equal(t, "points.csv", up.Filename)
	assert.Equal(t, 3, up.Rows)

	// the import becomes the session's dataset
	resp = env.postJSON(t, "/visualize", models.VisualizeRequest{ChartType: "scatter", Columns: []string{"x", "y"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.postJSON(t, "/api/db/import", models.ImportRequest{Table: "secrets"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "unknown table", decode[models.ErrorResponse](t, resp).Error)
}

func TestDatabaseConnectFailure(t *testing.T) {
	env := newTestEnv(t)
	env.source.connectErr = errors.New("connection refused")

	resp := env.postJSON(t, "/api/db/tables", models.TablesRequest{})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "failed to connect", decode[models.ErrorResponse](t, resp).Error)
}
