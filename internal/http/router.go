package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/dreamworld-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dreamworld-backend/internal/http/middleware"
	"github.com/yungbote/dreamworld-backend/internal/observability"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	ServiceName string

	HealthHandler   *httpH.HealthHandler
	DreamHandler    *httpH.DreamHandler
	LocationHandler *httpH.LocationHandler
	EntityHandler   *httpH.EntityHandler
	WorldHandler    *httpH.WorldHandler
	JobHandler      *httpH.JobHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	if cfg.Metrics != nil {
		r.Use(httpMW.Metrics(cfg.Metrics))
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Dreams
		if cfg.DreamHandler != nil {
			api.POST("/dreams", cfg.DreamHandler.CreateDream)
			api.GET("/dreams", cfg.DreamHandler.ListDreams)
			api.GET("/dreams/:id", cfg.DreamHandler.GetDream)
		}

		// Locations
		if cfg.LocationHandler != nil {
			api.GET("/locations", cfg.LocationHandler.ListLocations)
			api.POST("/locations", cfg.LocationHandler.CreateLocation)
			api.POST("/locations/merge", cfg.LocationHandler.MergeLocations)
			api.GET("/locations/:id", cfg.LocationHandler.GetLocation)
			api.PATCH("/locations/:id", cfg.LocationHandler.UpdateLocation)
			api.GET("/locations/:id/transits", cfg.LocationHandler.ListTransits)
		}

		// Entities
		if cfg.EntityHandler != nil {
			api.GET("/entities", cfg.EntityHandler.ListEntities)
			api.POST("/entities", cfg.EntityHandler.CreateEntity)
			api.GET("/entities/:id", cfg.EntityHandler.GetEntity)
		}

		// World
		if cfg.WorldHandler != nil {
			api.GET("/stats", cfg.WorldHandler.Stats)
			api.GET("/export", cfg.WorldHandler.Export)
			api.POST("/import", cfg.WorldHandler.Import)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/events", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
