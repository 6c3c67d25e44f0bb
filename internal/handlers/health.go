// internal/handlers/health.go
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stockledger/internal/core/ports"
	"github.com/ammerola/stockledger/internal/pkg/config"
	"github.com/ammerola/stockledger/internal/workers"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"
)

// ledgerQueues are the asynq queues the worker drains, most urgent first
var ledgerQueues = []string{workers.QueueCritical, workers.QueueDefault, workers.QueueLow}

// HealthHandler reports on the ledger database and its supporting services
type HealthHandler struct {
	db        ports.Database
	redis     *redis.Client
	inspector QueueInspector
	config    *config.Config
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler. redisClient and inspector
// may be nil.
func NewHealthHandler(
	database ports.Database,
	redisClient *redis.Client,
	inspector QueueInspector,
	cfg *config.Config,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:        database,
		redis:     redisClient,
		inspector: inspector,
		config:    cfg,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
}

// HealthStatus is the body of GET /health
type HealthStatus struct {
	Status         string                 `json:"status"`
	Version        string                 `json:"version"`
	Environment    string                 `json:"environment"`
	ReportTimezone string                 `json:"report_timezone"`
	Uptime         string                 `json:"uptime"`
	Timestamp      time.Time              `json:"timestamp"`
	Services       map[string]ServiceInfo `json:"services"`
	Runtime        RuntimeInfo            `json:"runtime"`
}

// ServiceInfo is the result of probing one dependency
type ServiceInfo struct {
	Status       string                 `json:"status"`
	Message      string                 `json:"message,omitempty"`
	ResponseTime string                 `json:"response_time,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// RuntimeInfo is a snapshot of the Go runtime
type RuntimeInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	HeapAllocMB   uint64 `json:"heap_alloc_mb"`
	NumGC         uint32 `json:"num_gc"`
}

type probe struct {
	name  string
	check func(ctx context.Context) ServiceInfo
}

// probes lists the configured dependencies. The database is always present.
func (h *HealthHandler) probes() []probe {
	probes := []probe{{name: "database", check: h.checkDatabase}}
	if h.redis != nil {
		probes = append(probes, probe{name: "redis", check: h.checkRedis})
	}
	if h.inspector != nil {
		probes = append(probes, probe{name: "asynq", check: h.checkQueues})
	}
	return probes
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:         statusHealthy,
		Version:        h.config.App.Version,
		Environment:    h.config.App.Environment,
		ReportTimezone: h.config.App.ReportTimezone,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:      time.Now(),
		Services:       make(map[string]ServiceInfo),
		Runtime:        runtimeInfo(),
	}

	for _, p := range h.probes() {
		info := p.check(ctx)
		health.Services[p.name] = info
		if info.Status != statusHealthy {
			health.Status = statusDegraded
		}
		// Nothing else is worth probing once the ledger itself is unreachable
		if p.name == "database" && info.Status != statusHealthy {
			break
		}
	}

	status := http.StatusOK
	if health.Status != statusHealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respondJSON(w, status, health)
}

// Readiness handles GET /ready. Only the stores a request can touch are
// pinged; queue health does not gate traffic.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ready := true
	details := make(map[string]string)
	mark := func(name string, err error) {
		if err != nil {
			ready = false
			details[name] = "not ready"
			h.logger.WarnContext(ctx, "dependency not ready",
				slog.String("dependency", name),
				slog.String("error", err.Error()))
			return
		}
		details[name] = "ready"
	}

	mark("database", h.db.Ping(ctx))
	if h.redis != nil {
		mark("redis", h.redis.Ping(ctx).Err())
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respondJSON(w, status, map[string]interface{}{
		"ready":   ready,
		"details": details,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ServiceInfo {
	start := time.Now()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "database health check failed",
			slog.String("error", err.Error()))
		return ServiceInfo{Status: statusUnhealthy, Message: err.Error()}
	}

	return ServiceInfo{
		Status:       statusHealthy,
		ResponseTime: time.Since(start).String(),
		Details:      h.db.Health(ctx),
	}
}

func (h *HealthHandler) checkRedis(ctx context.Context) ServiceInfo {
	start := time.Now()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		h.logger.ErrorContext(ctx, "redis health check failed",
			slog.String("error", err.Error()))
		return ServiceInfo{Status: statusUnhealthy, Message: err.Error()}
	}

	stats := h.redis.PoolStats()
	return ServiceInfo{
		Status:       statusHealthy,
		ResponseTime: time.Since(start).String(),
		Details: map[string]interface{}{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"timeouts":    stats.Timeouts,
		},
	}
}

// checkQueues reports the ledger queues. A paused critical queue means low
// stock alerts are not going out, which counts as unhealthy.
func (h *HealthHandler) checkQueues(ctx context.Context) ServiceInfo {
	start := time.Now()

	known, err := h.inspector.Queues()
	if err != nil {
		h.logger.ErrorContext(ctx, "asynq health check failed",
			slog.String("error", err.Error()))
		return ServiceInfo{Status: statusUnhealthy, Message: err.Error()}
	}
	exists := make(map[string]bool, len(known))
	for _, q := range known {
		exists[q] = true
	}

	info := ServiceInfo{Status: statusHealthy, Details: make(map[string]interface{})}
	queues := make(map[string]interface{}, len(ledgerQueues))
	for _, name := range ledgerQueues {
		// Queues appear in redis on first enqueue
		if !exists[name] {
			queues[name] = map[string]interface{}{"size": 0}
			continue
		}
		q, err := h.inspector.GetQueueInfo(name)
		if err != nil {
			queues[name] = map[string]interface{}{"error": err.Error()}
			continue
		}
		queues[name] = map[string]interface{}{
			"size":     q.Size,
			"pending":  q.Pending,
			"active":   q.Active,
			"retry":    q.Retry,
			"archived": q.Archived,
			"paused":   q.Paused,
		}
		if name == workers.QueueCritical && q.Paused {
			info.Status = statusUnhealthy
			info.Message = "critical queue is paused"
		}
	}
	info.Details["queues"] = queues

	if servers, err := h.inspector.Servers(); err == nil {
		info.Details["workers"] = len(servers)
	}

	info.ResponseTime = time.Since(start).String()
	return info
}

func runtimeInfo() RuntimeInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		HeapAllocMB:   mem.HeapAlloc / 1024 / 1024,
		NumGC:         mem.NumGC,
	}
}
