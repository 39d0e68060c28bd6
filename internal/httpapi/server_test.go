package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/robomaint/triage/internal/model"
	"github.com/robomaint/triage/internal/normalize"
	"github.com/robomaint/triage/internal/oracle"
	"github.com/robomaint/triage/internal/pipeline"
	"github.com/robomaint/triage/internal/similarity"
	"github.com/robomaint/triage/internal/store"
	"github.com/robomaint/triage/internal/triage"
)

func newTestServer(t *testing.T) (http.Handler, *store.Memory) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	repo := store.NewMemory()
	normalizer := normalize.New(normalize.Config{})
	engine := similarity.New(0.3, 10)
	client := oracle.NewClient(nil, 10, log)
	scorer := triage.NewScorer(client, log)
	pipe := pipeline.New(normalizer, repo, engine, scorer, log)

	h := NewServer(Deps{
		Repo:          repo,
		Pipeline:      pipe,
		Similar:       engine,
		Scorer:        scorer,
		Oracle:        client,
		DataDir:       t.TempDir(),
		QualityTarget: 75,
		Log:           log,
	})
	return h, repo
}

func seedRecord(t *testing.T, repo *store.Memory, id string) *model.Record {
	t.Helper()
	rec := &model.Record{
		RecordID:        id,
		SourceEventID:   "src_" + id,
		SourceEventType: model.EventErrorLog,
		Timestamp:       time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC),
		Joint:           "J3",
		Severity:        model.SeverityHigh,
		Status:          model.StatusPendingInspection,
		ErrorCode:       "SRVO-324",
		Description:     "Collision detected on J3",
	}
	if err := repo.Append(rec); err != nil {
		t.Fatal(err)
	}
	return rec
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rr.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	h, repo := newTestServer(t)
	seedRecord(t, repo, "a")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" || body["events"] != float64(1) {
		t.Errorf("body = %v", body)
	}
	if body["analysis_ready"] != false {
		t.Errorf("analysis_ready = %v, want false without a generator", body["analysis_ready"])
	}
}

func TestUploadAndProcess(t *testing.T) {
	h, repo := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "errors.log")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("2025-11-17 09:14:02 SRVO-324 Collision detected on J3\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	if repo.Count() != 1 {
		t.Errorf("stored %d records, want 1", repo.Count())
	}
}

func TestUploadRequiresFile(t *testing.T) {
	h, _ := newTestServer(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("other", "x")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestProcessAllScoresPool(t *testing.T) {
	h, repo := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "errors.log")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("2025-11-17 09:14:02 SRVO-324 Collision detected on J3\n"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("upload status = %d body = %s", rr.Code, rr.Body.String())
	}

	// A record seeded outside the data directory does not survive a rebuild.
	seedRecord(t, repo, "ghost")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/process-all?skip_ai=true", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["events_scored"] != float64(1) {
		t.Errorf("events_scored = %v", body["events_scored"])
	}
	if _, ok := repo.FindByID("ghost"); ok {
		t.Error("ghost record survived reprocessing")
	}
	for _, rec := range repo.All() {
		if rec.Triage == nil {
			t.Errorf("record %s not scored", rec.RecordID)
		}
	}
}

func TestListEventsFilters(t *testing.T) {
	h, repo := newTestServer(t)
	seedRecord(t, repo, "a")
	other := seedRecord(t, repo, "b")
	other.SourceEventType = model.EventSensorReading

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events?event_type=error_log", nil))
	body := decodeBody(t, rr)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events?start=not-a-time", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad start accepted: %d", rr.Code)
	}
}

func TestSimilarEndpoint(t *testing.T) {
	h, repo := newTestServer(t)
	seedRecord(t, repo, "a")
	seedRecord(t, repo, "b")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events/a/similar", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1 (the twin record)", body["count"])
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/events/missing/similar", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing record: status = %d, want 404", rr.Code)
	}
}

func TestTriageScoreEndpoint(t *testing.T) {
	h, repo := newTestServer(t)
	seedRecord(t, repo, "a")

	payload := strings.NewReader(`{"record_id":"a"}`)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/triage/score", payload))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	rec, _ := repo.FindByID("a")
	if rec.Triage == nil {
		t.Fatal("triage not attached")
	}
	if rec.Triage.Score < 60 {
		t.Errorf("score = %v, high severity floor is 60", rec.Triage.Score)
	}
}

func TestTriageScoreBySourceEventID(t *testing.T) {
	h, repo := newTestServer(t)
	seedRecord(t, repo, "a")

	payload := strings.NewReader(`{"record_id":"src_a"}`)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/triage/score", payload))
	if rr.Code != http.StatusOK {
		t.Fatalf("source event id lookup failed: %d", rr.Code)
	}
	rec, _ := repo.FindByID("a")
	if rec.Triage == nil {
		t.Error("triage not attached via source event id")
	}
}

func TestReportMarkdownAndHTML(t *testing.T) {
	h, repo := newTestServer(t)
	seedRecord(t, repo, "a")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/triage/a/report", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "markdown") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "# Maintenance Triage Report") {
		t.Errorf("markdown body = %q", rr.Body.String()[:80])
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/triage/a/report?format=html", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("html status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("html content type = %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "<h1") {
		t.Error("markdown heading not rendered to HTML")
	}
}

func TestQualityEndpoint(t *testing.T) {
	h, repo := newTestServer(t)
	seedRecord(t, repo, "a")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/quality", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if _, ok := body["quality"]; !ok {
		t.Error("quality section missing")
	}
	if _, ok := body["deduplication"]; !ok {
		t.Error("deduplication section missing")
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	h, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/stats/cache", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["available"] != false {
		t.Errorf("available = %v", body["available"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/upload", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}
