package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Controller struct {
	Handler *Handler
	router  *gin.Engine
}

// NewController wires the REST routes. socket and metrics may be nil.
func NewController(handler *Handler, socket http.Handler, metrics http.Handler) *Controller {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", handler.Health)

	location := router.Group("/location")
	{
		location.GET("", handler.GetLocations)
		location.GET("/:bus", handler.GetLocation)
	}
	router.GET("/gtfs-rt/vehicle-positions", handler.GetVehiclePositions)

	if socket != nil {
		router.GET("/socket", gin.WrapH(socket))
	}
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	return &Controller{Handler: handler, router: router}
}

func (c *Controller) Router() *gin.Engine { return c.router }

// Server returns an http.Server for the router. The caller owns its lifecycle.
func (c *Controller) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           c.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("HTTP запрос")
	}
}
