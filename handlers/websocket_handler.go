package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/adilbekov/raid-tracker/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin filtering is the CORS layer's job for this deployment.
		return true
	},
}

type WebSocketHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// ServeTeamEvents upgrades the connection and subscribes it to the team's
// event room. Clients connect to /ws/teams/{teamID}.
func (h *WebSocketHandler) ServeTeamEvents(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamID")
	if teamID == "" {
		http.Error(w, "missing teamID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade writes its own HTTP error, just log here.
		h.logger.Warn("websocket upgrade failed",
			slog.String("team_id", teamID), slog.Any("error", err))
		return
	}

	client := realtime.NewClient(h.hub, conn, teamID)
	client.Subscribe()
}
