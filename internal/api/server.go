package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"bili-radar/internal/model"
)

// ReportSource 抽象报表数据来源。
type ReportSource interface {
	Report() (map[string]any, error)
	Videos(limit int) ([]model.VideoRecord, error)
}

// NewHandler 构造 HTTP 多路复用器，chartsDir 指向图表产物目录。
func NewHandler(src ReportSource, chartsDir string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/report", func(w http.ResponseWriter, r *http.Request) {
		report, err := src.Report()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	mux.HandleFunc("/api/videos", func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if l := r.URL.Query().Get("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 {
				if v > 500 {
					v = 500
				}
				limit = v
			}
		}

		videos, err := src.Videos(limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		w.Header().Set("X-Limit", strconv.Itoa(limit))
		writeJSON(w, http.StatusOK, videos)
	})

	chartsFS := http.FileServer(http.Dir(chartsDir))
	mux.Handle("/charts/", http.StripPrefix("/charts/", chartsFS))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		path := filepath.Join(chartsDir, "dashboard.html")
		data, err := os.ReadFile(path)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]string{"message": "bili radar api"})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
