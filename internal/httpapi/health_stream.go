package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// healthStreamUpgrader mirrors the teacher's chat socket upgrader:
// origins aren't restricted since health status carries no per-caller
// secrets and the endpoint sits behind the same auth middleware as the
// rest of /api.
var healthStreamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	healthStreamPingInterval = 30 * time.Second
	healthStreamReadWait     = 60 * time.Second
	healthStreamPushInterval = 10 * time.Second
)

// stream upgrades GET /api/health/stream to a WebSocket and pushes
// Monitor.Snapshot results on an interval, adapted from the teacher's
// chat_websocket.go ping/pong-over-ticker pattern in place of its
// token streaming loop.
func (h *healthHandler) stream(c *gin.Context) {
	conn, err := healthStreamUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("health stream upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(healthStreamReadWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(healthStreamReadWait))
		return nil
	})

	// Drain and discard client frames so pong control messages are
	// processed; the client has nothing to say to us.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(healthStreamPingInterval)
	defer pingTicker.Stop()
	pushTicker := time.NewTicker(healthStreamPushInterval)
	defer pushTicker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case <-pushTicker.C:
			if err := conn.WriteJSON(h.monitor.Snapshot()); err != nil {
				return
			}
		}
	}
}
