// Package httpapi exposes the triage pipeline over HTTP. Handlers are thin:
// parse the request, call into the pipeline or store, write JSON.
package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/robomaint/triage/internal/model"
	"github.com/robomaint/triage/internal/oracle"
	"github.com/robomaint/triage/internal/pipeline"
	"github.com/robomaint/triage/internal/quality"
	"github.com/robomaint/triage/internal/similarity"
	"github.com/robomaint/triage/internal/store"
	"github.com/robomaint/triage/internal/triage"
)

const maxUploadBytes = 32 << 20

type Server struct {
	repo    store.Repository
	pipe    *pipeline.Pipeline
	similar *similarity.Engine
	scorer  *triage.Scorer
	oracle  *oracle.Client

	dataDir       string
	qualityTarget float64
	log           *logrus.Logger
	markdown      goldmark.Markdown
	started       time.Time
}

type Deps struct {
	Repo          store.Repository
	Pipeline      *pipeline.Pipeline
	Similar       *similarity.Engine
	Scorer        *triage.Scorer
	Oracle        *oracle.Client
	DataDir       string
	QualityTarget float64
	Log           *logrus.Logger
}

func NewServer(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	s := &Server{
		repo:          deps.Repo,
		pipe:          deps.Pipeline,
		similar:       deps.Similar,
		scorer:        deps.Scorer,
		oracle:        deps.Oracle,
		dataDir:       deps.DataDir,
		qualityTarget: deps.QualityTarget,
		log:           deps.Log,
		markdown:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		started:       time.Now(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/process-all", s.handleProcessAll)
	mux.HandleFunc("/api/events", s.handleListEvents)
	mux.HandleFunc("/api/events/", s.handleEventSubresource)
	mux.HandleFunc("/api/triage/score", s.handleTriageScore)
	mux.HandleFunc("/api/triage/", s.handleTriageReport)
	mux.HandleFunc("/api/quality", s.handleQuality)
	mux.HandleFunc("/api/stats/cache", s.handleCacheStats)
	mux.HandleFunc("/api/health", s.handleHealth)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required: "+err.Error())
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer f.Close()

	name := filepath.Base(hdr.Filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	dst := filepath.Join(s.dataDir, name)
	out, err := os.Create(dst)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "save upload: "+err.Error())
		return
	}
	if _, err := io.Copy(out, f); err != nil {
		out.Close()
		writeError(w, http.StatusInternalServerError, "save upload: "+err.Error())
		return
	}
	out.Close()

	fr, err := s.pipe.ProcessFile(dst)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false, "result": fr})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": fr})
}

func (s *Server) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	results, err := s.pipe.ProcessDirectory(s.dataDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	skipModel := r.URL.Query().Get("skip_ai") == "true"
	scored, err := s.pipe.ScoreAll(r.Context(), skipModel)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "scoring: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"files":         results,
		"events_scored": scored,
		"total_events":  s.repo.Count(),
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	f := store.Filter{
		EventType: model.EventType(strings.TrimSpace(r.URL.Query().Get("event_type"))),
		Limit:     parseInt(r.URL.Query().Get("limit"), 0),
	}
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC3339")
			return
		}
		f.Start = t
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC3339")
			return
		}
		f.End = t
	}
	records := s.repo.List(f)
	writeJSON(w, http.StatusOK, map[string]any{"events": records, "count": len(records)})
}

// handleEventSubresource routes /api/events/{id}/similar.
func (s *Server) handleEventSubresource(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/events/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "similar" {
		http.NotFound(w, r)
		return
	}
	rec, ok := s.lookup(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	matches := s.similar.FindSimilar(rec, s.repo.All())
	writeJSON(w, http.StatusOK, map[string]any{
		"record_id": rec.RecordID,
		"matches":   matches,
		"count":     len(matches),
	})
}

func (s *Server) handleTriageScore(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		RecordID string `json:"record_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	rec, ok := s.lookup(strings.TrimSpace(req.RecordID))
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	similar := s.similar.FindSimilar(rec, s.repo.All())
	result := s.scorer.Score(r.Context(), rec, similar)
	if err := s.repo.AttachTriage(rec.RecordID, result); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"record_id": rec.RecordID, "triage": result})
}

// handleTriageReport routes /api/triage/{id}/report. Default output is
// markdown; ?format=html renders it.
func (s *Server) handleTriageReport(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/triage/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[1] != "report" {
		http.NotFound(w, r)
		return
	}
	rec, ok := s.lookup(parts[0])
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if rec.Triage == nil {
		similar := s.similar.FindSimilar(rec, s.repo.All())
		result := s.scorer.Score(r.Context(), rec, similar)
		if err := s.repo.AttachTriage(rec.RecordID, result); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		rec.Triage = &result
	}

	md := triage.BuildReportMarkdown(rec)
	if r.URL.Query().Get("format") == "html" {
		var buf bytes.Buffer
		if err := s.markdown.Convert([]byte(md), &buf); err != nil {
			writeError(w, http.StatusInternalServerError, "render report: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><title>Triage Report %s</title></head><body>\n", rec.RecordID)
		_, _ = w.Write(buf.Bytes())
		_, _ = io.WriteString(w, "\n</body></html>\n")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, md)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	all := s.repo.All()
	flat := make([]model.Record, len(all))
	for i, rec := range all {
		flat[i] = *rec
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quality":       quality.Assess(flat, s.qualityTarget),
		"deduplication": quality.Deduplication(flat),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	if s.oracle == nil {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": s.oracle.Available(),
		"cache":     s.oracle.CacheStats(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	analysisReady := s.oracle != nil && s.oracle.Available()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"events":         s.repo.Count(),
		"analysis_ready": analysisReady,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

// lookup resolves an identifier against record IDs first, then source event
// IDs, so callers can use whichever they have.
func (s *Server) lookup(id string) (*model.Record, bool) {
	if id == "" {
		return nil, false
	}
	if rec, ok := s.repo.FindByID(id); ok {
		return rec, true
	}
	if rec, ok := s.repo.FindBySourceEventID(id); ok {
		return rec, true
	}
	return nil, false
}
