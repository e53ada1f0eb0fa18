package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"greenlens/internal/domain"
	"greenlens/internal/middleware"
)

// ViewerAttacher runs a connected document viewer until it disconnects.
type ViewerAttacher interface {
	Serve(conn *websocket.Conn, layout domain.Layout)
}

// ViewerHandler upgrades browser viewers onto the viewer bridge.
type ViewerHandler struct {
	bridge   ViewerAttacher
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewViewerHandler creates a new ViewerHandler accepting the given browser origins.
func NewViewerHandler(bridge ViewerAttacher, allowedOrigins []string, logger *slog.Logger) *ViewerHandler {
	return &ViewerHandler{
		bridge: bridge,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		logger: logger,
	}
}

// Attach handles GET /api/v1/viewer/ws
// @Summary Attach a document viewer
// @Description Websocket. Commands down: load, jump, highlight, surface. Signals up: loaded, ready.
// @Tags viewer
// @Param layout query string false "wide (default) or compact"
// @Router /viewer/ws [get]
func (h *ViewerHandler) Attach(c *gin.Context) {
	layout := domain.ParseLayout(c.Query("layout"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("viewer upgrade failed", "error", err)
		return
	}
	h.bridge.Serve(conn, layout)
}
