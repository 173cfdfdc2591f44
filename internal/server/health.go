package server

import (
	"encoding/json"
	"net/http"

	ws "github.com/dukerupert/classpoints/internal/websocket"
)

type healthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
	// Dropped counts change messages skipped for slow websocket clients.
	Dropped int64 `json:"dropped"`
}

func writeHealth(w http.ResponseWriter, status int, state string, hub *ws.Hub) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(healthResponse{
		Status:  state,
		Clients: hub.ClientCount(),
		Dropped: hub.Dropped(),
	})
}
