package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and streams change notifications until
// the client disconnects. An empty origins list accepts any origin.
func HandleWebSocket(hub *Hub, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns:     origins,
			InsecureSkipVerify: len(origins) == 0,
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.CloseNow()

		hub.logger.Debug("websocket connected", "remote", r.RemoteAddr, "clients", hub.ClientCount()+1)
		NewClient(hub, conn, r.RemoteAddr).Run(r.Context())
		conn.Close(ws.StatusNormalClosure, "")
	}
}
