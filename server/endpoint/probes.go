// Package endpoint serves the operational probes: /health with component
// detail, /ready for the load balancer and /info with build metadata.
package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyodoblog/mojiokoshi-line-bot/component"
	"github.com/hyodoblog/mojiokoshi-line-bot/version"
)

// HealthChecker reports the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

var booted = time.Now()

// Overall is the worst status among hs. Degraded still counts as serving.
func Overall(hs []component.Health) component.HealthStatus {
	worst := component.StatusHealthy
	for _, h := range hs {
		if h.Status == component.StatusUnhealthy {
			return h.Status
		}
		if h.Status == component.StatusDegraded {
			worst = h.Status
		}
	}
	return worst
}

func check(c *gin.Context, checker HealthChecker) ([]component.Health, component.HealthStatus, int) {
	var hs []component.Health
	if checker != nil {
		hs = checker(c.Request.Context())
	}
	overall := Overall(hs)
	if overall == component.StatusUnhealthy {
		return hs, overall, http.StatusServiceUnavailable
	}
	return hs, overall, http.StatusOK
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// Health lists every component. It answers 503 once any is unhealthy.
func Health(service string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		hs, overall, code := check(c, checker)
		c.JSON(code, gin.H{"service": service, "status": overall, "components": hs, "timestamp": now()})
	}
}

// Ready answers "ready" while nothing is unhealthy: with a recognition
// backend degraded the bot still replies to every delivery.
func Ready(service string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, code := check(c, checker)
		state := "ready"
		if code != http.StatusOK {
			state = "not_ready"
		}
		c.JSON(code, gin.H{"service": service, "status": state, "timestamp": now()})
	}
}

// Info reports the build the process runs.
func Info(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		b := version.Get()
		c.JSON(http.StatusOK, gin.H{
			"service":    service,
			"version":    b.Version,
			"git_commit": b.GitCommit,
			"build_time": b.BuildTime,
			"go_version": b.GoVersion,
			"uptime":     time.Since(booted).Round(time.Second).String(),
		})
	}
}
