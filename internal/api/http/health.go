package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 1 * time.Second

type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db"`
	Redis     string    `json:"redis"`
	Storage   string    `json:"storage,omitempty"`
}

// Pinger is anything that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	serviceName string
	version     string
	db          *pgxpool.Pool
	redis       *redis.Client
	storage     Pinger
}

// NewHealthHandler builds the health endpoint. Nil dependencies report "disabled".
func NewHealthHandler(serviceName, version string, db *pgxpool.Pool, rdb *redis.Client, storage Pinger) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		db:          db,
		redis:       rdb,
		storage:     storage,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	resp := HealthResponse{
		Status:    "OK",
		Message:   "Leaf It to Us API is running",
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        "disabled",
		Redis:     "disabled",
	}

	if h.db != nil {
		resp.DB = probe(ctx, h.db.Ping)
	}
	if h.redis != nil {
		resp.Redis = probe(ctx, func(ctx context.Context) error { return h.redis.Ping(ctx).Err() })
	}
	if h.storage != nil {
		resp.Storage = probe(ctx, h.storage.Ping)
	}

	// redis holds every diagnosis and treatment, so without it nothing works
	status := http.StatusOK
	if resp.Redis == "down" {
		resp.Status = "DEGRADED"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
	r.GET("/api/health", h.HealthCheck)
}

func probe(ctx context.Context, ping func(context.Context) error) string {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(pctx); err != nil {
		return "down"
	}
	return "up"
}
