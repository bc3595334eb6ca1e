package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/oni-coach-backend/internal/http/handlers"
	httpMW "github.com/yungbote/oni-coach-backend/internal/http/middleware"
	"github.com/yungbote/oni-coach-backend/internal/observability"
	"github.com/yungbote/oni-coach-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	InternalSecret string
	Metrics        *observability.Metrics

	HealthHandler     *httpH.HealthHandler
	ScheduleHandler   *httpH.ScheduleHandler
	CommitmentHandler *httpH.CommitmentHandler
	ConfigHandler     *httpH.ConfigHandler
	DeviceHandler     *httpH.DeviceHandler
	WorkerHandler     *httpH.WorkerHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("oni-coach"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	internal := r.Group("/internal")
	internal.Use(httpMW.RequireInternalSecret(cfg.InternalSecret))
	{
		// Schedules
		if cfg.ScheduleHandler != nil {
			internal.GET("/schedules/:id", cfg.ScheduleHandler.GetSchedule)
			internal.POST("/schedules/:id/responses", cfg.ScheduleHandler.RecordResponse)
			internal.POST("/schedules/:id/plan", cfg.ScheduleHandler.SubmitPlan)
		}

		// Commitments
		if cfg.CommitmentHandler != nil {
			internal.GET("/users/:user_id/commitments", cfg.CommitmentHandler.ListCommitments)
			internal.PUT("/users/:user_id/commitments", cfg.CommitmentHandler.ReplaceCommitments)
		}

		// Runtime config
		if cfg.ConfigHandler != nil {
			internal.GET("/config", cfg.ConfigHandler.ListConfig)
			internal.GET("/config/:key", cfg.ConfigHandler.GetConfig)
			internal.PUT("/config/:key", cfg.ConfigHandler.SetConfig)
			internal.DELETE("/config/:key", cfg.ConfigHandler.ResetConfig)
		}

		// Device
		if cfg.DeviceHandler != nil {
			internal.GET("/device/status", cfg.DeviceHandler.Status)
		}

		// Worker
		if cfg.WorkerHandler != nil {
			internal.POST("/worker/run", cfg.WorkerHandler.RunOnce)
		}
	}

	return r
}
