package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"storyvoice-server-go/internal/platform/logging"
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1 << 10,
	WriteBufferSize:  1 << 12,
	// The web API already enforces CORS; the upgrade accepts any origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades requests on the progress endpoint and runs the session
// until the client disconnects. A `run_id` query parameter pre-filters the
// session; it can be changed later with a subscribe message.
func Handler(hub *Hub, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WarnTag("WS", "upgrade failed: %v", err)
			return
		}

		session := NewSession(uuid.NewString(), conn, logger)
		if runID := c.Query("run_id"); runID != "" {
			session.SetRunFilter(runID)
		}
		hub.Register(session)
		logger.DebugTag("WS", "session %s connected (%d active)", session.ID(), hub.Count())

		session.Run(hub)
	}
}
