package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// ReadyCheck is one named dependency probe for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []ReadyCheck
}

func NewHealthHandler(checks ...ReadyCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Healthz answers liveness: the process is up.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// Readyz answers readiness: every dependency probe must pass within its
// deadline or the body names the ones that did not.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failing := map[string]string{}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			failing[c.Name] = err.Error()
		}
	}

	if len(failing) > 0 {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]any{"status": "degraded", "failing": failing})
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ready"})
}
