// Package health serves the operator probes.
//
//   - GET /healthz answers 200 while the process runs.
//   - GET /readyz answers 200 only when every [Checker] passes.
//
// Both reply with {"status": "ok"|"fail", "checks": {name: result}}.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

const (
	statusOK   = "ok"
	statusFail = "fail"
)

// Checker probes one dependency of the bot. Check returns nil while the
// dependency is usable.
type Checker struct {
	// Name keys the check in the readiness report, e.g. "ffmpeg".
	Name string

	// Check must return once ctx is done.
	Check func(ctx context.Context) error
}

// report is the JSON body of both probes.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler answers the liveness and readiness probes.
type Handler struct {
	checkers []Checker
}

// New returns a Handler that runs checkers on every readiness probe.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz reports that the process is serving. It never consults checkers.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, report{Status: statusOK})
}

// Readyz fans the checkers out, each with its own [checkTimeout], and
// answers 503 when any of them fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	errs := make([]error, len(h.checkers))

	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			errs[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	rep := report{Status: statusOK, Checks: make(map[string]string, len(errs))}
	code := http.StatusOK
	for i, err := range errs {
		name := h.checkers[i].Name
		if err == nil {
			rep.Checks[name] = statusOK
			continue
		}
		rep.Checks[name] = statusFail + ": " + err.Error()
		rep.Status = statusFail
		code = http.StatusServiceUnavailable
	}
	respond(w, code, rep)
}

// Register mounts both probes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func respond(w http.ResponseWriter, code int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		slog.Debug("health: write response", "err", err)
	}
}
