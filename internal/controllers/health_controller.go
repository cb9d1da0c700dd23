package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-analytics-api/pkg/cache"
	"portfolio-analytics-api/pkg/database"
)

type HealthController struct {
	db    *database.MongoDB
	cache *cache.RedisClient
}

func NewHealthController(db *database.MongoDB, cacheClient *cache.RedisClient) *HealthController {
	return &HealthController{
		db:    db,
		cache: cacheClient,
	}
}

func (c *HealthController) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", c.Health)
	r.GET("/health/ready", c.Ready)
}

// Health reports liveness
func (c *HealthController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "portfolio-analytics-api",
	})
}

// Ready reports readiness of the backing stores
func (c *HealthController) Ready(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if c.db != nil {
		if err := c.db.Ping(checkCtx); err != nil {
			checks["mongodb"] = "unreachable"
			healthy = false
		} else {
			checks["mongodb"] = "ok"
		}
	}

	if c.cache != nil {
		if err := c.cache.Ping(checkCtx); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	ctx.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "degraded"}[healthy],
		"checks": checks,
	})
}
