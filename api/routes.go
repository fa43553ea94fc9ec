package api

import (
	"github.com/gin-gonic/gin"

	"firetvcontrol/models"
	"firetvcontrol/service"
)

func SetupRoutes(router *gin.Engine, registry *service.DeviceRegistry, dispatcher *service.Dispatcher, wsHub *WebSocketHub) {
	// Enable CORS
	router.Use(CORSMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, models.SuccessResponse(gin.H{
			"status":  "ok",
			"actions": service.Operations(),
		}))
	})

	devices := router.Group("/devices")
	{
		devices.POST("/add", func(c *gin.Context) {
			AddDevice(c, registry)
		})
		devices.GET("/list", func(c *gin.Context) {
			ListDevices(c, registry)
		})
		devices.GET("/state/:device_id", func(c *gin.Context) {
			DeviceState(c, registry)
		})
		devices.GET("/connect/:device_id", func(c *gin.Context) {
			ConnectDevice(c, registry)
		})
		devices.GET("/action/:device_id/:action_id", func(c *gin.Context) {
			DeviceAction(c, registry, dispatcher)
		})
		devices.DELETE("/:device_id", func(c *gin.Context) {
			RemoveDevice(c, registry)
		})
		devices.GET("/:device_id/apps/running", func(c *gin.Context) {
			RunningApps(c, registry)
		})
		devices.GET("/:device_id/apps/current", func(c *gin.Context) {
			CurrentApp(c, registry)
		})
		devices.GET("/:device_id/apps/state/:app_id", func(c *gin.Context) {
			AppState(c, registry)
		})
		devices.POST("/:device_id/apps/:app_id/launch", func(c *gin.Context) {
			LaunchApp(c, registry)
		})
		devices.POST("/:device_id/apps/:app_id/stop", func(c *gin.Context) {
			StopApp(c, registry)
		})
	}

	// WebSocket route
	router.GET("/ws", func(c *gin.Context) {
		HandleWebSocket(wsHub, c)
	})
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
