package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/julienschmidt/httprouter"

	httputil "venuebook/pkg/http"
	"venuebook/pkg/logger"
)

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Components   map[string]any    `json:"components,omitempty"`
}

// Check pings one backing dependency.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks     map[string]Check
	components map[string]func() any
	timeout    time.Duration
	log        *logger.Logger
}

func NewHealthHandler(log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks:     map[string]Check{},
		components: map[string]func() any{},
		timeout:    2 * time.Second,
		log:        log,
	}
}

// AddCheck registers a dependency that must answer for /ready to pass.
func (h *HealthHandler) AddCheck(name string, check Check) *HealthHandler {
	h.checks[name] = check
	return h
}

// AddComponent exposes a runtime snapshot (queue depth, publish counters)
// on /ready without affecting the verdict.
func (h *HealthHandler) AddComponent(name string, snapshot func() any) *HealthHandler {
	h.components[name] = snapshot
	return h
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ready", Dependencies: map[string]string{}}
	statusCode := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.Error("Dependency health check failed",
				"dependency", name,
				"error", err,
				"path", r.URL.Path,
			)
			resp.Dependencies[name] = "error"
			resp.Status = "unavailable"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		resp.Dependencies[name] = "ok"
	}

	if len(h.components) > 0 {
		resp.Components = make(map[string]any, len(h.components))
		for name, snapshot := range h.components {
			resp.Components[name] = snapshot()
		}
	}

	if err := httputil.WriteJSON(w, statusCode, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
