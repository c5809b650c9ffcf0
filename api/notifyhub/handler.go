package notifyhub

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/shareflow/shareflow-go/session"
	"github.com/shareflow/shareflow-go/tool"
	"github.com/shareflow/shareflow-go/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // capability token in the query is the access control here
	},
}

// HandleSessionEvents upgrades the request to WebSocket and registers
// the connection with the hub. The presented token must carry the owner
// role; recipients have no event stream.
func HandleSessionEvents(hub *Hub, mediator *session.Mediator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		decision := mediator.Authorize(token, session.OpViewMetadata)
		if !decision.Allowed {
			// owners see the concrete terminal state, like everywhere else
			if decision.TerminalState != "" {
				c.JSON(http.StatusGone, tool.FastReturnErrorWithData(decision.Message(), map[string]any{
					"state": decision.TerminalState,
				}))
				return
			}
			c.JSON(http.StatusNotFound, tool.FastReturnError(decision.Message()))
			return
		}
		if decision.Role != types.RoleOwner {
			c.JSON(http.StatusForbidden, tool.FastReturnError("This operation requires the owner link"))
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionId := decision.Session.SessionId
		hub.Register(sessionId, conn)
		defer hub.Unregister(sessionId, conn)

		// Read loop to detect client close and keep connection alive
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
