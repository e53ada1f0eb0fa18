package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenlens/internal/domain"
	"greenlens/internal/logging"
	"greenlens/internal/viewer"
)

func viewerServer(t *testing.T, bridge *viewer.Bridge) string {
	t.Helper()
	h := NewViewerHandler(bridge, []string{"http://localhost:5173"}, logging.Discard())
	r := gin.New()
	r.GET("/viewer/ws", h.Attach)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/viewer/ws"
}

func TestViewerHandler_AttachDeclaresLayout(t *testing.T) {
	bridge := viewer.NewBridge(time.Second, logging.Discard())
	url := viewerServer(t, bridge)

	header := http.Header{"Origin": []string{"http://localhost:5173"}}
	conn, _, err := websocket.DefaultDialer.Dial(url+"?layout=compact", header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, bridge.Attached, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.LayoutCompact, bridge.Layout())
}

func TestViewerHandler_RejectsForeignOrigin(t *testing.T) {
	bridge := viewer.NewBridge(time.Second, logging.Discard())
	url := viewerServer(t, bridge)

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, bridge.Attached())
}
