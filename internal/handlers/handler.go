package handlers

import (
	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/service"
	"dashboard_sync/internal/sink"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	hub      *sink.Hub
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler. hub may be nil, which disables
// the live event feed.
func NewHandler(services *service.Service, hub *sink.Hub, log *logger.Logger) *Handler {
	return &Handler{services: services, hub: hub, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Live event feed: /ws/events?instance=<id>
	router.GET("/ws/events", h.wsEvents)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorMiddleware)
	{
		h.registerInstanceRoutes(api)
	}
}

func (h *Handler) registerInstanceRoutes(api *gin.RouterGroup) {
	instances := api.Group("/instances")
	{
		instances.GET("", h.listInstances)
		instances.POST("", h.registerInstance)
		instances.GET("/:id", h.getInstance)

		// Body example: {"actor_name":"Alice","item_class":"AKM","deferred":false}
		instances.POST("/:id/purchases", h.submitPurchase)
		instances.GET("/:id/purchases", h.listPurchases)
		instances.GET("/:id/locations", h.listLocations)

		instances.POST("/:id/spawner/register", h.registerSpawner)
		instances.POST("/:id/gc", h.collectNow)
	}
}
