package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/relabs-tech/pubmarine/internal/bridge"
	"github.com/relabs-tech/pubmarine/internal/hub"
	"github.com/relabs-tech/pubmarine/internal/observability"
	"github.com/relabs-tech/pubmarine/internal/protocol"
)

// newRouter builds the host HTTP API:
//
//	GET  /ws           live command stream and viewer requests
//	GET  /api/state    latest STAT from the vehicle
//	GET  /api/gps      latest surface fix
//	POST /api/command  {"action": "send", "line": "MOT X=0.5"}
//	GET  /metrics      Prometheus
func newRouter(h *hub.Hub, cmd *commander, last *latest, corsOrigins []string, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log))
	r.Use(observability.RequestMetrics())
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "viewers": h.Clients()})
	})

	r.GET("/ws", func(c *gin.Context) {
		h.ServeWS(c.Writer, c.Request, cmd.HandleRequest)
	})

	r.GET("/api/state", func(c *gin.Context) {
		st, fault, ok := last.State()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no data yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": st, "attitude": last.Attitude(), "last_error": fault})
	})

	r.GET("/api/gps", func(c *gin.Context) {
		fix, ok := last.Fix()
		if !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no fix yet"})
			return
		}
		c.JSON(http.StatusOK, fix)
	})

	r.POST("/api/command", func(c *gin.Context) {
		var req hub.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := cmd.HandleRequest(c.ClientIP(), req)
		switch {
		case err == nil:
			c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
		case errors.Is(err, bridge.ErrWriteFailed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		case errors.Is(err, protocol.ErrUnknownCommand), errors.Is(err, protocol.ErrMissingField),
			errors.Is(err, protocol.ErrTypeMismatch), errors.Is(err, errNotOutbound):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
	})

	r.GET("/metrics", gin.WrapH(observability.Handler()))
	return r
}
