package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/http"
	httpH "github.com/yungbote/dreamworld-backend/internal/http/handlers"
	"github.com/yungbote/dreamworld-backend/internal/observability"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Dream    *httpH.DreamHandler
	Location *httpH.LocationHandler
	Entity   *httpH.EntityHandler
	World    *httpH.WorldHandler
	Job      *httpH.JobHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, hub *realtime.Hub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Dream:    httpH.NewDreamHandler(services.Dreams),
		Location: httpH.NewLocationHandler(services.Locations),
		Entity:   httpH.NewEntityHandler(services.Entities),
		World:    httpH.NewWorldHandler(services.World),
		Job:      httpH.NewJobHandler(services.Jobs),
		Realtime: httpH.NewRealtimeHandler(log, hub),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		CORSOrigins:     cfg.CORSOrigins,
		ServiceName:     cfg.ServiceName,
		HealthHandler:   handlers.Health,
		DreamHandler:    handlers.Dream,
		LocationHandler: handlers.Location,
		EntityHandler:   handlers.Entity,
		WorldHandler:    handlers.World,
		JobHandler:      handlers.Job,
		RealtimeHandler: handlers.Realtime,
	})
}
