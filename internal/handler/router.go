package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"campusevents/internal/auth"
	"campusevents/internal/httpmiddleware"
	"campusevents/internal/metrics"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// RouterConfig collects what NewRouter wires around the handler.
type RouterConfig struct {
	Handler        *Handler
	Log            *zap.Logger
	SigningKey     string
	Issuer         string
	Limiter        httpmiddleware.Limiter
	RequestTimeout time.Duration
	Health         map[string]HealthCheck
}

// NewRouter builds the full engine: middleware chain, /healthz, /metrics
// and the authenticated API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(log, "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(metrics.GinMiddleware())
	if cfg.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(cfg.Limiter, log))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(httpmiddleware.Timeout(cfg.RequestTimeout))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		status := http.StatusOK
		for name, check := range cfg.Health {
			ok := check(c.Request.Context())
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		c.JSON(status, body)
	})

	api := r.Group("", auth.Bearer(cfg.SigningKey, cfg.Issuer))
	cfg.Handler.Routes(api)
	return r
}
