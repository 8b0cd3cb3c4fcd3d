package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joseph-ayodele/fineprint/internal/common"
	"github.com/joseph-ayodele/fineprint/internal/compare"
	"github.com/joseph-ayodele/fineprint/internal/entity"
	"github.com/joseph-ayodele/fineprint/internal/export"
	"github.com/joseph-ayodele/fineprint/internal/extract"
	"github.com/joseph-ayodele/fineprint/internal/llm"
	"github.com/joseph-ayodele/fineprint/internal/metrics"
	"github.com/joseph-ayodele/fineprint/internal/normalize"
	"github.com/joseph-ayodele/fineprint/internal/notifications"
	"github.com/joseph-ayodele/fineprint/internal/pipeline"
	"github.com/joseph-ayodele/fineprint/internal/regulations"
	"github.com/joseph-ayodele/fineprint/internal/repository"
	"github.com/joseph-ayodele/fineprint/internal/review"
	"github.com/joseph-ayodele/fineprint/internal/segment"
	"github.com/joseph-ayodele/fineprint/internal/storage"
	"github.com/joseph-ayodele/fineprint/internal/users"
)

const pdfHeader = "%PDF-1.7\n"

type formFeedExtractor struct{}

func (formFeedExtractor) Extract(_ context.Context, filename string, data []byte) (extract.Document, error) {
	body, ok := strings.CutPrefix(string(data), pdfHeader)
	if !ok || strings.Contains(body, "%%corrupt") {
		return extract.Document{}, common.DocumentFormatError(filename, errors.New("unreadable"))
	}
	return extract.Document{Pages: strings.Split(body, "\f"), Method: "stub"}, nil
}

type scriptedOracle struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (o *scriptedOracle) script(reply string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reply, o.err = reply, err
}

func (o *scriptedOracle) Segment(context.Context, llm.SegmentRequest) (llm.RawPayload, error) {
	return llm.RawPayload(`{"enacting_terms":[null,null]}`), nil
}

func (o *scriptedOracle) Compare(context.Context, llm.CompareRequest) (llm.RawPayload, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return llm.RawPayload(o.reply), o.err
}

type testServer struct {
	*httptest.Server
	handler http.Handler
	oracle  *scriptedOracle
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	oracle := &scriptedOracle{reply: "[]"}
	store := repository.NewMemoryStore()
	proc := pipeline.NewProcessor(formFeedExtractor{}, segment.NewOracleSegmenter(oracle, m, nil),
		compare.NewComparator(oracle, 0, nil), normalize.New(m, nil), m, nil)
	notes := notifications.NewService(store.Notifications, store.Users, nil, "Fineprint Finder", nil)
	regs := regulations.NewService(store.Regulations, storage.NewMemory(), proc, notes, m, regulations.Options{}, nil)
	srv := New(Services{
		Regulations:   regs,
		Review:        review.NewService(regs, m, nil),
		Notifications: notes,
		Users:         users.NewService(store.Users, nil),
		Export:        export.NewService(store.Regulations, nil),
	}, Options{Gatherer: reg, MaxUploadBytes: 1 << 20}, nil)

	h := srv.Routes()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, handler: h, oracle: oracle}
}

func pdf(pages ...string) []byte {
	return []byte(pdfHeader + strings.Join(pages, "\f"))
}

func (ts *testServer) upload(t *testing.T, path string, fields map[string]string, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	resp, err := http.Post(ts.URL+path, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func (ts *testServer) do(t *testing.T, method, path string, payload any) *http.Response {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req, _ := http.NewRequest(method, ts.URL+path, &body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body := new(bytes.Buffer)
		_, _ = body.ReadFrom(resp.Body)
		t.Fatalf("status = %d, want %d, body %s", resp.StatusCode, want, body)
	}
}

const oneChange = `{"changes":[{"summary":"Fine raised","analysis":"Penalty doubled.","change":"10 -> 20",
"before_quote":"fine of 10","after_quote":"fine of 20","before_page":2,"after_page":2,
"type":"penalty change","classification":"other","confidence":0.8}]}`

func TestIngestReviewFlow(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.upload(t, "/api/v1/regulations", map[string]string{"title": "GDPR", "version": "2016"},
		"a.pdf", pdf("cover", "a fine of 10"))
	expectStatus(t, resp, http.StatusCreated)
	reg := decode[entity.Regulation](t, resp)
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	ts.oracle.script(oneChange, nil)
	resp = ts.upload(t, "/api/v1/regulations/"+reg.ID+"/versions", map[string]string{"version": "2018"},
		"b.pdf", pdf("cover", "a fine of 20"))
	expectStatus(t, resp, http.StatusCreated)
	v := decode[entity.Version](t, resp)
	if v.ID != "v2" || len(v.Changes) != 1 || v.Changes[0].ID != "change-1" {
		t.Fatalf("version = %+v", v)
	}

	base := fmt.Sprintf("/api/v1/regulations/%s/versions/v2/changes/change-1", reg.ID)
	resp = ts.do(t, http.MethodPut, base+"/status", map[string]string{"status": "relevant"})
	expectStatus(t, resp, http.StatusOK)
	if c := decode[entity.ChangeRecord](t, resp); c.Status != "relevant" {
		t.Errorf("status = %s", c.Status)
	}

	resp = ts.do(t, http.MethodPatch, base, map[string]string{"summary": "Penalty doubled"})
	expectStatus(t, resp, http.StatusOK)
	if c := decode[entity.ChangeRecord](t, resp); c.Status != "pending" || c.Summary != "Penalty doubled" {
		t.Errorf("after edit = %+v", c)
	}

	resp = ts.do(t, http.MethodPost, base+"/comments", map[string]string{"username": "ana", "comment": "looks fine"})
	expectStatus(t, resp, http.StatusCreated)
	if c := decode[entity.Comment](t, resp); c.ID != "comment-1" {
		t.Errorf("comment id = %s", c.ID)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/notifications?username=ana", nil)
	expectStatus(t, resp, http.StatusOK)
	if views := decode[[]entity.NotificationView](t, resp); len(views) != 2 || views[0].Seen {
		t.Errorf("notifications = %+v", views)
	}

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/regulations/%s/versions/v2/export.xlsx", reg.ID), nil)
	expectStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("export content type = %q", ct)
	}
	_ = resp.Body.Close()

	resp = ts.do(t, http.MethodGet, fmt.Sprintf("/api/v1/regulations/%s/versions/v1/file", reg.ID), nil)
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()
}

func TestTypedFailuresMapToStatus(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.upload(t, "/api/v1/regulations", map[string]string{"title": "GDPR", "version": "1"}, "a.pdf", pdf("one"))
	expectStatus(t, resp, http.StatusCreated)
	reg := decode[entity.Regulation](t, resp)
	versions := "/api/v1/regulations/" + reg.ID + "/versions"

	resp = ts.upload(t, "/api/v1/regulations", map[string]string{"title": "X", "version": "1"}, "a.txt", []byte("plain text"))
	expectStatus(t, resp, http.StatusUnsupportedMediaType)
	_ = resp.Body.Close()

	resp = ts.upload(t, versions, map[string]string{"version": "2"}, "b.pdf", pdf("%%corrupt"))
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	_ = resp.Body.Close()

	ts.oracle.script("[]", common.OracleUnavailableError("compare", errors.New("timeout")))
	resp = ts.upload(t, versions, map[string]string{"version": "2"}, "b.pdf", pdf("two"))
	expectStatus(t, resp, http.StatusServiceUnavailable)
	_ = resp.Body.Close()

	const prose = "I think the documents differ slightly."
	ts.oracle.script(prose, nil)
	resp = ts.upload(t, versions, map[string]string{"version": "2"}, "b.pdf", pdf("two"))
	expectStatus(t, resp, http.StatusBadGateway)
	if body := decode[errorBody](t, resp); body.Code != common.CodeAnalysisOutput || body.RawOutput != prose {
		t.Errorf("body = %+v", body)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/regulations/"+reg.ID+"/versions/v9", nil)
	expectStatus(t, resp, http.StatusNotFound)
	if body := decode[errorBody](t, resp); body.Kind != "version" || body.ID != "v9" {
		t.Errorf("not found body = %+v", body)
	}

	resp = ts.do(t, http.MethodPut, "/api/v1/regulations/"+reg.ID+"/status", map[string]string{"status": "done"})
	expectStatus(t, resp, http.StatusBadRequest)
	_ = resp.Body.Close()

	resp = ts.do(t, http.MethodPut, "/api/v1/regulations/"+reg.ID+"/status", map[string]any{"status": "validated", "extra": 1})
	expectStatus(t, resp, http.StatusBadRequest)
	_ = resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/v1/regulations/"+reg.ID, nil)
	if got := decode[entity.Regulation](t, resp); len(got.Versions) != 1 {
		t.Errorf("failed ingestions left %d versions", len(got.Versions))
	}
}

func TestOversizedUpload(t *testing.T) {
	ts := newTestServer(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("title", "Big")
	_ = mw.WriteField("version", "1")
	fw, _ := mw.CreateFormFile("file", "big.pdf")
	_, _ = fw.Write(pdf(strings.Repeat("x", 2<<20)))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/regulations", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestUsersAndLogin(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodPost, "/api/v1/users", map[string]string{
		"username": "ana", "email": "ana@example.com", "password": "longenough", "role": "admin",
	})
	expectStatus(t, resp, http.StatusCreated)
	raw := new(bytes.Buffer)
	_, _ = raw.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	if strings.Contains(raw.String(), "$2a$") || strings.Contains(raw.String(), "password") {
		t.Errorf("user response leaks the hash: %s", raw)
	}

	resp = ts.do(t, http.MethodPost, "/api/v1/users", map[string]string{
		"username": "ana", "email": "other@example.com", "password": "longenough",
	})
	expectStatus(t, resp, http.StatusConflict)
	_ = resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/v1/login", map[string]string{"username": "ana", "password": "nope-nope"})
	expectStatus(t, resp, http.StatusUnauthorized)
	_ = resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/v1/login", map[string]string{"username": "ana", "password": "longenough"})
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.do(t, http.MethodGet, "/health", nil)
	expectStatus(t, resp, http.StatusOK)
	_ = resp.Body.Close()

	_ = ts.upload(t, "/api/v1/regulations", map[string]string{"title": "GDPR", "version": "1"}, "a.pdf", pdf("one")).Body.Close()
	resp = ts.do(t, http.MethodGet, "/metrics", nil)
	expectStatus(t, resp, http.StatusOK)
	body := new(bytes.Buffer)
	_, _ = body.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(body.String(), `fineprint_ingestions_total{kind="first",outcome="ok"} 1`) {
		t.Errorf("metrics missing ingestion counter:\n%s", body)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 200},
		{common.UnsupportedMediaTypeError("a", "text/plain"), 415},
		{common.DocumentFormatError("a", errors.New("x")), 422},
		{common.OracleUnavailableError("compare", context.DeadlineExceeded), 503},
		{common.NewAnalysisOutputError("bad", nil, nil), 502},
		{fmt.Errorf("wrap: %w", common.NewNotFoundError("change", "change-9")), 404},
		{common.ConflictError("r1"), 409},
		{common.InvalidInputError("x"), 400},
		{common.UnauthorizedError(), 401},
		{&http.MaxBytesError{Limit: 1}, 413},
		{common.InternalError("file missing", common.NewNotFoundError("file", "k")), 500},
		{errors.New("boom"), 500},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
