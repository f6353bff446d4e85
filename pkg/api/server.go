// Package api exposes the audit service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/accesslens/accesslens/pkg/audit"
	"github.com/accesslens/accesslens/pkg/errors"
	"github.com/accesslens/accesslens/pkg/logging"
	"github.com/accesslens/accesslens/pkg/webrules"
)

// Auditor runs audits for submitted targets.
type Auditor interface {
	Run(ctx context.Context, target audit.Target) (*audit.Result, error)
}

// Store is the minimal retrieval contract the API needs.
type Store interface {
	Load(runID string) (*audit.Result, error)
	List(ctx context.Context, since time.Time) ([]audit.Summary, error)
}

// Server wires the handlers. HealthHandler and MetricsHandler are optional.
type Server struct {
	Auditor        Auditor
	Store          Store
	Log            logging.Logger
	MaxPDFBytes    int64
	RateLimit      rate.Limit // requests per second, 0 disables limiting
	RateBurst      int
	HealthHandler  http.Handler
	MetricsHandler http.Handler
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/audits", s.handleSubmit)
	mux.HandleFunc("GET /api/v1/audits", s.handleList)
	mux.HandleFunc("GET /api/v1/audits/{id}", s.handleGet)
	mux.HandleFunc("GET /api/v1/checks", s.handleChecks)

	if s.HealthHandler != nil {
		mux.Handle("GET /api/v1/health", s.HealthHandler)
	}
	if s.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.MetricsHandler)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return s.withRateLimit(mux)
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.RateLimit <= 0 {
		return next
	}
	burst := s.RateBurst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(s.RateLimit, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			s.err(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type submitRequest struct {
	URL string `json:"url"`
}

// handleSubmit accepts either a JSON body naming a URL or a multipart form
// with a "pdf" file, runs the audit synchronously, and returns the full
// result.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	target, ok := s.parseTarget(w, r)
	if !ok {
		return
	}

	result, err := s.Auditor.Run(r.Context(), target)
	switch {
	case errors.IsStoreWrite(err):
		// The audit may have succeeded; persistence did not.
		s.err(w, http.StatusInsufficientStorage, "could not persist audit result: "+err.Error())
		return
	case errors.GetKind(err) == errors.KindInvalidInput:
		s.err(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.err(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) parseTarget(w http.ResponseWriter, r *http.Request) (audit.Target, bool) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		s.err(w, http.StatusBadRequest, "missing Content-Type")
		return audit.Target{}, false
	}

	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(s.MaxPDFBytes); err != nil {
			s.err(w, http.StatusRequestEntityTooLarge, "parse upload: "+err.Error())
			return audit.Target{}, false
		}
		file, header, err := r.FormFile("pdf")
		if err != nil {
			s.err(w, http.StatusBadRequest, `multipart submissions need a "pdf" file field`)
			return audit.Target{}, false
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, s.MaxPDFBytes+1))
		if err != nil {
			s.err(w, http.StatusBadRequest, "read upload: "+err.Error())
			return audit.Target{}, false
		}
		if int64(len(data)) > s.MaxPDFBytes {
			s.err(w, http.StatusRequestEntityTooLarge, "pdf exceeds upload limit")
			return audit.Target{}, false
		}
		return audit.PDFTarget(data, header.Filename), true
	}

	var req submitRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.err(w, http.StatusBadRequest, "decode request: "+err.Error())
		return audit.Target{}, false
	}
	if req.URL == "" {
		s.err(w, http.StatusBadRequest, `request needs a "url" field or a pdf upload`)
		return audit.Target{}, false
	}
	return audit.WebTarget(req.URL), true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	result, err := s.Store.Load(r.PathValue("id"))
	if errors.IsNotFound(err) {
		s.err(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.err(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.err(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		since = parsed
	}

	items, err := s.Store.List(r.Context(), since)
	if err != nil {
		s.err(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []audit.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// handleChecks lists the web check catalogue.
func (s *Server) handleChecks(w http.ResponseWriter, r *http.Request) {
	type check struct {
		ID      string   `json:"id"`
		Summary string   `json:"summary"`
		WCAG    []string `json:"wcag,omitempty"`
	}
	var out []check
	for _, c := range webrules.List() {
		out = append(out, check{ID: c.ID, Summary: c.Summary, WCAG: c.WCAG})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": out, "count": len(out)})
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	if s.Log != nil && code >= 500 {
		s.Log.Error("http %d: %s", code, msg)
	}
	writeJSON(w, code, map[string]interface{}{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
