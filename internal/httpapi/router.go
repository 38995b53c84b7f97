package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mhoward-dev/portfolio-chat/internal/config"
	"github.com/mhoward-dev/portfolio-chat/internal/httpapi/handlers"
)

func NewRouter(cfg config.Config, h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(Recovery())
	r.Use(RequestID())
	r.Use(CORS(cfg.AllowedOrigins, cfg.DefaultOrigin))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	r.GET("/ping", h.Ping)
	r.POST("/api/chat", h.HandleChat)

	return r
}
