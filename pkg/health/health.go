// Package health aggregates component health checks behind an HTTP handler.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Checker reports whether one component is able to do its job.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) error
}

func (c CheckerFunc) Name() string                    { return c.CheckName }
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// Registry runs registered checkers and serves the combined status.
type Registry struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

func NewRegistry() *Registry {
	return &Registry{timeout: 5 * time.Second}
}

func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, c)
}

type status struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the overall status: 200 when every check passes, 503
// otherwise, with per-check detail in the body.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), r.timeout)
		defer cancel()

		r.mu.RLock()
		checkers := make([]Checker, len(r.checkers))
		copy(checkers, r.checkers)
		r.mu.RUnlock()

		st := status{Status: "ok", Checks: make(map[string]string, len(checkers))}
		code := http.StatusOK
		for _, c := range checkers {
			if err := c.Check(ctx); err != nil {
				st.Status = "unhealthy"
				st.Checks[c.Name()] = err.Error()
				code = http.StatusServiceUnavailable
			} else {
				st.Checks[c.Name()] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(st)
	})
}
