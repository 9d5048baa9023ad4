package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spencer-p/tidecast/pkg/metrics"
	"github.com/spencer-p/tidecast/pkg/predict"
)

var resultLink = regexp.MustCompile(`/results/([0-9a-f-]+)/spreadsheet`)

type fixture struct {
	server   *Server
	site     *httptest.Server
	browser  *http.Client
	upstream atomic.Int32
}

func newFixture(t *testing.T, predictCode int, predictBody string) *fixture {
	t.Helper()
	f := &fixture{}

	service := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.upstream.Add(1)
		switch r.URL.Path {
		case "/predict":
			w.WriteHeader(predictCode)
			w.Write([]byte(predictBody))
		case "/plot":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png-bytes"))
		}
	}))
	t.Cleanup(service.Close)

	client, err := predict.NewClient(predict.Config{BaseURL: service.URL})
	require.NoError(t, err)

	f.server = New(Options{
		Client:   client,
		Sessions: NewSessionStore(SessionOptions{HashKey: "test-hash", Password: "test"}),
	})
	r := mux.NewRouter()
	f.server.Register(r)
	f.site = httptest.NewServer(r)
	t.Cleanup(f.site.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.browser = &http.Client{Jar: jar}
	return f
}

func (f *fixture) submit(t *testing.T, fileName, start, end string) (int, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		part.Write([]byte("time,height\n2023-12-01 00:00,1.2\n"))
	}
	mw.WriteField("start_date", start)
	mw.WriteField("end_date", end)
	require.NoError(t, mw.Close())

	resp, err := f.browser.Post(f.site.URL+"/submit", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.browser.Get(f.site.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIndex(t *testing.T) {
	f := newFixture(t, http.StatusOK, "xlsx")
	resp := f.get(t, "/")
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Proses Prediksi")
	assert.Contains(t, string(body), `action="/submit"`)
}

func TestSubmitMissingFile(t *testing.T) {
	f := newFixture(t, http.StatusOK, "xlsx")
	code, body := f.submit(t, "", "2024-01-01", "2024-01-31")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "File CSV, tanggal mulai, dan tanggal selesai wajib diisi")
	assert.EqualValues(t, 0, f.upstream.Load())
}

func TestSubmitInvertedDates(t *testing.T) {
	f := newFixture(t, http.StatusOK, "xlsx")
	code, body := f.submit(t, "obs.csv", "2024-02-01", "2024-01-01")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "Tanggal mulai harus sebelum atau sama dengan tanggal selesai")
	assert.Contains(t, body, `value="2024-02-01"`, "dates are echoed back into the form")
	assert.EqualValues(t, 0, f.upstream.Load())
}

func TestSubmitServiceError(t *testing.T) {
	f := newFixture(t, http.StatusBadRequest, "bad file")
	code, body := f.submit(t, "obs.csv", "2024-01-01", "2024-01-31")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, body, `<div class="alert">bad file</div>`)
	assert.NotRegexp(t, resultLink, body)
}

func TestSubmitSuccess(t *testing.T) {
	f := newFixture(t, http.StatusOK, "xlsx-bytes")
	code, body := f.submit(t, "obs.csv", "2024-01-01", "2024-01-31")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Unduh Excel Hasil Prediksi")
	assert.Contains(t, body, `download="prediksi_01-01-2024_to_31-01-2024.xlsx"`)

	m := resultLink.FindStringSubmatch(body)
	require.Len(t, m, 2)
	id := m[1]

	resp := f.get(t, "/results/"+id+"/spreadsheet")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "prediksi_01-01-2024_to_31-01-2024.xlsx", params["filename"])
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "xlsx-bytes", string(data))

	plot := f.get(t, "/results/"+id+"/plot")
	require.Equal(t, http.StatusOK, plot.StatusCode)
	assert.Equal(t, "image/png", plot.Header.Get("Content-Type"))

	// Reloading the page shows the same result.
	index := f.get(t, "/")
	page, _ := io.ReadAll(index.Body)
	assert.Contains(t, string(page), "/results/"+id+"/plot")
}

func TestSubmitReplacesPreviousResult(t *testing.T) {
	f := newFixture(t, http.StatusOK, "xlsx-bytes")

	_, first := f.submit(t, "obs.csv", "2024-01-01", "2024-01-31")
	firstID := resultLink.FindStringSubmatch(first)[1]

	_, second := f.submit(t, "obs.csv", "2024-02-01", "2024-02-28")
	secondID := resultLink.FindStringSubmatch(second)[1]

	assert.NotEqual(t, firstID, secondID)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/results/"+firstID+"/spreadsheet").StatusCode)
	assert.Equal(t, http.StatusOK, f.get(t, "/results/"+secondID+"/spreadsheet").StatusCode)
	assert.Equal(t, 1, f.server.results.Len())

	// A failed attempt clears the previous result too.
	f.submit(t, "obs.xlsx", "2024-02-01", "2024-02-28")
	assert.Equal(t, 0, f.server.results.Len())
}

func TestUnknownResult(t *testing.T) {
	f := newFixture(t, http.StatusOK, "xlsx")
	assert.Equal(t, http.StatusNotFound, f.get(t, "/results/nope/spreadsheet").StatusCode)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/results/nope/plot").StatusCode)
}

func TestClassify(t *testing.T) {
	table := []struct {
		err     error
		outcome string
		code    int
	}{
		{nil, metrics.OutcomeOK, http.StatusOK},
		{predict.ErrNotCSV, metrics.OutcomeValidation, http.StatusBadRequest},
		{errUploadTooLarge, metrics.OutcomeValidation, http.StatusBadRequest},
		{&predict.ServiceError{Message: "bad file"}, metrics.OutcomeService, http.StatusBadGateway},
		{errors.New("boom"), metrics.OutcomeUnexpected, http.StatusInternalServerError},
	}
	for _, tc := range table {
		outcome, code := classify(tc.err)
		assert.Equal(t, tc.outcome, outcome, "%v", tc.err)
		assert.Equal(t, tc.code, code, "%v", tc.err)
	}
}

func TestLinkUnderPrefix(t *testing.T) {
	s := New(Options{Prefix: "/tides/"})
	assert.Equal(t, "/tides/results/abc/plot", s.link("results", "abc", "plot"))
	assert.Equal(t, "/submit", New(Options{}).link("submit"))
}
