package main

import (
	"context"
	"net/http"
	"time"

	"sous-system/internal/gateway/handlers"
	"sous-system/internal/gateway/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "Sous Backend"

func newRouter(a *app) (*gin.Engine, error) {
	limits := middleware.NewLimiterStore("sous")
	chatLimit, err := middleware.RateLimit(limits, "chat", a.cfg.RateLimit.Chat)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	pipelineHandler := handlers.NewPipelineHTTPHandler(a.etl)
	dashboardHandler := handlers.NewDashboardHTTPHandler(a.dashboard)
	agentHandler := handlers.NewAgentHTTPHandler(a.agent)

	r.GET("/", healthCheckHandler)
	r.GET("/health/detailed", detailedHealthCheckHandler(a))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/ingest", middleware.JWTAuth(a.cfg.Auth.JWTSecret), pipelineHandler.Ingest)
		api.GET("/dashboard/summary", dashboardHandler.Summary)
		api.GET("/inventory", dashboardHandler.Inventory)
		api.POST("/agent/chat", chatLimit, agentHandler.Chat)
		api.GET("/monitor/pipeline", pipelineHandler.PipelineStatus)
		api.GET("/variance", pipelineHandler.Variance)
		api.GET("/variance/export", pipelineHandler.VarianceExport)
	}

	return r, nil
}

func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
	})
}

func detailedHealthCheckHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		services := map[string]interface{}{
			"transactional": checkServiceHealth(pingDB(ctx, a)),
			"analytical":    checkServiceHealth(a.analytics.Ping(ctx)),
		}
		if a.redis != nil {
			services["cache"] = checkServiceHealth(a.redis.Ping(ctx).Err())
		} else {
			services["cache"] = map[string]interface{}{
				"status":  "disabled",
				"message": "REDIS_HOST not set",
			}
		}

		overallStatus := "healthy"
		for _, service := range services {
			if serviceMap, ok := service.(map[string]interface{}); ok {
				if s := serviceMap["status"]; s != "healthy" && s != "disabled" {
					overallStatus = "degraded"
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"overall_status": overallStatus,
			"services":       services,
			"timestamp":      time.Now(),
		})
	}
}

func pingDB(ctx context.Context, a *app) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func checkServiceHealth(err error) map[string]interface{} {
	if err != nil {
		return map[string]interface{}{
			"status":  "unavailable",
			"message": err.Error(),
		}
	}
	return map[string]interface{}{
		"status":  "healthy",
		"message": "Service is responding",
	}
}
