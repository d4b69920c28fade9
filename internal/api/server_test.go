package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bili-radar/internal/model"
)

func TestGetReport(t *testing.T) {
	t.Parallel()

	src := &stubSource{report: map[string]any{"overview": map[string]any{"total_videos": float64(3)}}}

	h := NewHandler(src, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := body["overview"]; !ok {
		t.Fatalf("expected overview in report, got %v", body)
	}
}

func TestGetReportError(t *testing.T) {
	t.Parallel()

	src := &stubSource{reportErr: errors.New("no report yet")}

	h := NewHandler(src, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestListVideos(t *testing.T) {
	t.Parallel()

	src := &stubSource{videos: []model.VideoRecord{{Bvid: "BV1xx", Title: "执行力"}}}

	h := NewHandler(src, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/api/videos?limit=5", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if src.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d", src.lastLimit)
	}
}

func TestListVideosLimitClamp(t *testing.T) {
	t.Parallel()

	src := &stubSource{}

	h := NewHandler(src, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/api/videos?limit=9999", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if src.lastLimit != 500 {
		t.Fatalf("expected clamped limit 500, got %d", src.lastLimit)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	h := NewHandler(&stubSource{}, t.TempDir())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

// --- stubs ---

type stubSource struct {
	report    map[string]any
	reportErr error
	videos    []model.VideoRecord
	lastLimit int
}

func (s *stubSource) Report() (map[string]any, error) {
	return s.report, s.reportErr
}

func (s *stubSource) Videos(limit int) ([]model.VideoRecord, error) {
	s.lastLimit = limit
	return s.videos, nil
}
