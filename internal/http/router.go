package http

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.ngs.io/climatology-api/internal/usecase"
)

// RouterOptions configures SetupRouter.
type RouterOptions struct {
	// AllowedOrigins lists CORS origins; empty allows all origins.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// SetupRouter creates and configures the Gin router.
func SetupRouter(climatologyUC *usecase.ClimatologyUseCase, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(opts.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// Create handler.
	handler := NewHandler(climatologyUC)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/variables", handler.GetVariables)

	climatology := v1.Group("/climatology")
	climatology.GET("/value", handler.GetValue)
	climatology.GET("/contours", handler.GetContours)
	climatology.GET("/contours.png", handler.GetContoursPNG)
	climatology.GET("/windatlas", handler.GetWindAtlas)

	cyclones := v1.Group("/cyclones")
	cyclones.GET("/crossings", handler.GetCrossings)

	// Health check and metrics.
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestLogger logs one line per request at debug level, or warn for
// server errors.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelDebug
		if c.Writer.Status() >= 500 {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
