package routes

import (
	"net/http"
	"time"

	"broadway/handlers"
	"broadway/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes registers the chat widget endpoints.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/chat")
	{
		api.POST("/turn", hb.ChatTurnHandler)
		api.POST("/voice", hb.ChatVoiceHandler)
		api.GET("/:sessionID/cart", hb.ChatCartHandler)
		api.GET("/:sessionID/history", hb.ChatHistoryHandler)
		api.DELETE("/:sessionID", hb.ChatResetHandler)
	}
}

// RegisterCatalogRoutes registers the read-only menu endpoints.
func RegisterCatalogRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	{
		api.GET("/menu", hb.MenuHandler)
		api.GET("/menu/categories", hb.CategoriesHandler)
		api.GET("/deals", hb.DealsHandler)
		api.GET("/info", hb.InfoHandler)
	}
}

// RegisterOrderRoutes registers the order lookup endpoint.
func RegisterOrderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/api/orders/:id", hb.GetOrderHandler)
}

// RegisterHealthRoute registers a health-check endpoint backed by the health monitor.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", HealthHandler)
}

// HealthHandler reports the latest dependency probe.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	state := "ok"
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"status": state, "message": "Hi, I'm the Broadway Pizza assistant", "dependencies": status})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// The chat widget is served from other origins.
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	RegisterChatRoutes(r, hb)
	RegisterCatalogRoutes(r, hb)
	RegisterOrderRoutes(r, hb)
	RegisterHealthRoute(r)
}
