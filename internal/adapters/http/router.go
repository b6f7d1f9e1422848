package http

import (
	nethttp "net/http"

	"github.com/dkeye/Lobbyhub/internal/app/orch"
	"github.com/dkeye/Lobbyhub/internal/config"
	"github.com/dkeye/Lobbyhub/internal/metrics"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	clientTokenKey = "client_token"
	sessionName    = "LobbyhubSessions"
)

// ClientTokenMiddleware keeps a stable per-browser token in the cookie session.
// It only tags bridge connections in logs; it grants nothing.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			s.Set(clientTokenKey, token)
			if err := s.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save client token")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

// SetupBridgeRouter serves the WebSocket tunnel into the TCP listener.
func SetupBridgeRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.WebSocket.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	bridge := NewBridge(config.DialAddr(cfg.TCP.Host, cfg.TCP.Port))
	r.GET(cfg.WebSocket.Path, bridge.Handle)

	log.Info().Str("module", "adapters.http").Str("path", cfg.WebSocket.Path).Str("target", bridge.Target).Msg("bridge router setup")
	return r
}

// SetupMetricsRouter serves Prometheus metrics, a health probe and hub stats.
func SetupMetricsRouter(o *orch.Orchestrator, reporter *metrics.Reporter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(reporter.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
	})
	api := r.Group("/api")
	api.GET("/stats", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, o.Stats())
	})

	log.Info().Str("module", "adapters.http").Msg("metrics router setup")
	return r
}
