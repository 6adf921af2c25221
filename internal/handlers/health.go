package handlers

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boomlift-maintenance/internal/records"
)

// HealthCheck checks one dependency
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler reports service and dependency status
type HealthHandler struct {
	store   *records.Store
	checks  []HealthCheck
	timeout time.Duration
}

// HealthResponse is the body returned by the health endpoint
type HealthResponse struct {
	Status  string            `json:"status"`
	Records int               `json:"records"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// NewHealthHandler creates a health handler running the given checks
func NewHealthHandler(store *records.Store, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		store:   store,
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Records: h.store.Len()}
	status := http.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		for _, c := range h.checks {
			if err := c.Check(ctx); err != nil {
				log.WithError(err).WithField("check", c.Name).Warn("Health check failed")
				resp.Checks[c.Name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
	}

	writeJSON(w, status, resp)
}
