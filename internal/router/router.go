package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"greenlens/internal/handler"
	"greenlens/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	workflowH *handler.WorkflowHandler,
	viewerH *handler.ViewerHandler,
	healthH *handler.HealthHandler,
	allowedOrigins []string,
	logger *slog.Logger,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Workflow routes
	workflow := v1.Group("/workflow")
	workflow.GET("", workflowH.State)
	workflow.GET("/events", workflowH.Events)
	workflow.POST("/uploads", workflowH.Upload)
	workflow.POST("/reset", workflowH.Reset)
	workflow.GET("/highlights", workflowH.Highlights)

	// Findings routes
	v1.POST("/initiatives/:index/jump", workflowH.Jump)
	v1.GET("/export", workflowH.Export)

	// Viewer bridge
	v1.GET("/viewer/ws", viewerH.Attach)

	return r
}
