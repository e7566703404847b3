package handlers

import (
	_ "extruder_monitor/docs"
	"extruder_monitor/internal/logger"
	"extruder_monitor/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Live telemetry stream, same port
	router.GET("/ws", h.wsConnect)

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
	api := r.Group("/api/v1", h.operatorIdMiddleware)
	{
		h.registerSerialRoutes(api)
		h.registerSessionRoutes(api)
		h.registerTelemetryRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerSerialRoutes(api *gin.RouterGroup) {
	serial := api.Group("/serial")
	{
		serial.GET("/ports", h.listPorts)
		// Body example: {"port_name":"/dev/ttyUSB0","baud_rate":115200}
		serial.POST("/connect", h.connect)
		serial.POST("/disconnect", h.disconnect)
		serial.POST("/wakeup", h.sendWakeup)
	}
}

func (h *Handler) registerSessionRoutes(api *gin.RouterGroup) {
	session := api.Group("/session")
	{
		session.POST("/reset", h.resetSession)
		session.DELETE("/init-block", h.forgetInitBlock)
	}
}

func (h *Handler) registerTelemetryRoutes(api *gin.RouterGroup) {
	telemetry := api.Group("/telemetry")
	{
		telemetry.GET("/state", h.getState)
		telemetry.GET("/samples", h.getSamples)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
