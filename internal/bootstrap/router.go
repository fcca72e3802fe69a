package bootstrap

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	httpapi "github.com/leafit/leafit-backend/internal/api/http"
	"github.com/leafit/leafit-backend/internal/api/http/middleware"
	diaghttp "github.com/leafit/leafit-backend/internal/diagnoses/http"
	diagservice "github.com/leafit/leafit-backend/internal/diagnoses/service"
	"github.com/leafit/leafit-backend/internal/observability"
	"github.com/leafit/leafit-backend/internal/photos"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/session"
	"github.com/leafit/leafit-backend/internal/stats"
	treathttp "github.com/leafit/leafit-backend/internal/treatments/http"
	treatservice "github.com/leafit/leafit-backend/internal/treatments/service"
	userhttp "github.com/leafit/leafit-backend/internal/users/http"
	userservice "github.com/leafit/leafit-backend/internal/users/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	StaticDir   string
	CORSOrigins []string

	// TrustedProxies may set X-Forwarded-For. Empty trusts no one and
	// ClientIP is the peer address.
	TrustedProxies []string

	Log      *logger.Logger
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer

	Sessions    *session.Manager
	AuthLimiter *middleware.RateLimiter
	Users       *userservice.UserService
	Diagnoses   *diagservice.DiagnosisService
	Treatments  *treatservice.TreatmentService
	Stats       *stats.Service

	// Photos is nil when no bucket is configured.
	Photos        *photos.Store
	PhotoMaxBytes int64
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	log := dep.Log
	if log == nil {
		log = logger.Nop()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(dep.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, trusting none", "proxies", dep.TrustedProxies, "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.CORS(dep.CORSOrigins),
		dep.Sessions.Middleware(),
		middleware.RequestLog(log.With("component", "http")),
		middleware.Metrics(dep.Metrics),
	)

	var storage httpapi.Pinger
	if dep.Photos != nil {
		storage = dep.Photos
	}
	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis, storage)
	healthHandler.RegisterRoutes(r)

	if dep.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dep.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	requireAuth := session.RequireAuth()

	limit := func(c *gin.Context) { c.Next() }
	if dep.AuthLimiter != nil {
		limit = dep.AuthLimiter.Middleware()
	}

	userhttp.New(dep.Users, dep.Sessions, log.With("handler", "auth")).
		Register(api.Group("/auth"), requireAuth, limit)
	diaghttp.New(dep.Diagnoses, log.With("handler", "diagnoses")).
		Register(api.Group("/diagnoses"), requireAuth)
	treathttp.New(dep.Treatments, log.With("handler", "treatments")).
		Register(api.Group("/treatments"), requireAuth)
	stats.NewHandler(dep.Stats, log.With("handler", "stats")).
		Register(api.Group("/stats"))

	if dep.Photos != nil {
		photos.NewHandler(dep.Photos, dep.PhotoMaxBytes, log.With("handler", "photos")).
			Register(api.Group("/photos"), requireAuth)
	}

	r.NoRoute(httpapi.SPAFallback(dep.StaticDir))

	return r
}
