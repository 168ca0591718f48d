package http

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"trivia-service/internal/metrics"
)

const DefaultBasePath = "/api/trivia"

// RouterConfig carries the server settings the router needs.
type RouterConfig struct {
	BasePath       string
	AllowedOrigins []string
	GinMode        string
}

// NewRouter mounts the REST operations and the websocket endpoint under the base path,
// plus /health and /metrics at the root.
func NewRouter(cfg RouterConfig, h *Handler, ws *WSHandler, m *metrics.Metrics, log zerolog.Logger) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// Restrict to the configured origins; allow all when none are set.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(RequestID())
	router.Use(AccessLog(log.With().Str("component", "access").Logger()))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	base := cfg.BasePath
	if base == "" {
		base = DefaultBasePath
	}
	api := router.Group("/" + strings.Trim(base, "/"))
	{
		api.POST("/start", h.Start)
		api.POST("/answer/:sessionId", h.SubmitAnswer)
		api.GET("/next-question/:sessionId", h.NextQuestion)
		api.GET("/results/:sessionId", h.Results)
		api.GET("/progress/:sessionId", h.Progress)
		api.DELETE("/session/:sessionId", h.Cancel)
		api.GET("/stats/:userId", h.Stats)
		if ws != nil {
			api.GET("/ws", gin.WrapF(ws.ServeWS))
		}
	}
	return router
}
