package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/athena-robotics/workcell-go/internal/adapters/metrics"
	"github.com/athena-robotics/workcell-go/internal/application/common"
	"github.com/athena-robotics/workcell-go/internal/application/tasks"
	tasksQueries "github.com/athena-robotics/workcell-go/internal/application/tasks/queries"
	domainFleet "github.com/athena-robotics/workcell-go/internal/domain/fleet"
	"github.com/athena-robotics/workcell-go/internal/domain/shared"
)

// ConnectionReporter exposes per-robot link state for the health view
type ConnectionReporter interface {
	ConnectionStates() map[string]bool
}

// BatteryReporter exposes per-robot battery state for the health view
type BatteryReporter interface {
	Reports() []domainFleet.BatteryReport
}

// Deps wires the HTTP surface into the application layer
type Deps struct {
	Mediator common.Mediator
	Engine   *tasks.Engine
	Fleet    ConnectionReporter
	Battery  BatteryReporter
	Logger   *zap.Logger
	Clock    shared.Clock
	Version  string
}

// Router is the operator-facing HTTP surface: one command ingress plus
// read-only status endpoints.
type Router struct {
	deps    Deps
	started time.Time
}

// NewRouter builds the chi handler tree
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = shared.NewRealClock()
	}
	rt := &Router{deps: deps, started: deps.Clock.Now()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Post("/", rt.handleCommand)
	r.Get("/", rt.handleHealth)
	r.Get("/task/{task_id}", rt.handleTaskGet)
	r.Get("/tasks/recent", rt.handleTasksRecent)
	r.Get("/queue/status", rt.handleQueueStatus)
	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			metrics.GetRegistry(), promhttp.HandlerOpts{}))
	}
	return r
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":         "ok",
		"version":        rt.deps.Version,
		"uptime_seconds": int(rt.deps.Clock.Now().Sub(rt.started).Seconds()),
	}
	if rt.deps.Engine != nil {
		health["queue_size"] = rt.deps.Engine.Status().Pending
	}
	if rt.deps.Fleet != nil {
		health["robots"] = rt.deps.Fleet.ConnectionStates()
	}
	if rt.deps.Battery != nil {
		health["battery"] = rt.deps.Battery.Reports()
	}
	writeJSON(w, http.StatusOK, health)
}

func (rt *Router) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	resp, err := rt.deps.Mediator.Send(r.Context(), &tasksQueries.GetTaskStateQuery{TaskID: taskID})
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, resp)
}

func (rt *Router) handleTasksRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, shared.NewValidationError("limit", "must be a positive integer"))
			return
		}
		limit = n
	}
	snaps, err := rt.deps.Engine.Recent(limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, map[string]any{"tasks": snaps, "count": len(snaps)})
}

func (rt *Router) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	status := rt.deps.Engine.Status()
	writeJSON(w, http.StatusOK, status)
}
