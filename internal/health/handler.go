package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgredis "github.com/pipecast/backend/pkg/redis"
)

func timeoutContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), checkTimeout)
}

const checkTimeout = 2 * time.Second

// Handler reports service health: dependency checks plus process metrics.
type Handler struct {
	db        *pgxpool.Pool
	redis     *pkgredis.Client
	startedAt time.Time
}

// NewHandler creates a health handler. startedAt is the process start time
// used for the uptime field.
func NewHandler(db *pgxpool.Pool, redis *pkgredis.Client, startedAt time.Time) *Handler {
	return &Handler{db: db, redis: redis, startedAt: startedAt}
}

// Get handles GET /api/health.
func (h *Handler) Get(c *gin.Context) {
	ctx, cancel := timeoutContext(c)
	defer cancel()

	checks := gin.H{}
	healthy := true
	warning := false

	if h.db != nil {
		dbOK := h.db.Ping(ctx) == nil
		checks["database"] = dbOK
		healthy = healthy && dbOK
	}
	if h.redis != nil {
		redisOK := h.redis.Ping(ctx).Err() == nil
		checks["redis"] = redisOK
		// Redis degrades caching and realtime fan-out but requests still work.
		warning = warning || !redisOK
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := "healthy"
	code := http.StatusOK
	switch {
	case !healthy:
		status = "unhealthy"
		code = http.StatusInternalServerError
	case warning:
		status = "warning"
	}

	c.JSON(code, gin.H{
		"status": status,
		"uptime": time.Since(h.startedAt).String(),
		"memory": gin.H{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
		},
		"checks": checks,
		"metrics": gin.H{
			"goroutines": runtime.NumGoroutine(),
			"gc_cycles":  mem.NumGC,
		},
	})
}

// Head handles HEAD /api/health with an empty 200.
func (h *Handler) Head(c *gin.Context) {
	c.Status(http.StatusOK)
}

// Options handles OPTIONS /api/health with the allowed methods.
func (h *Handler) Options(c *gin.Context) {
	c.Header("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Status(http.StatusOK)
}
