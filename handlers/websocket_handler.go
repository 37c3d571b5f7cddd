package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/nbekov/race-control/live"
	"github.com/nbekov/race-control/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Доступ к трансляции регулируется CORS-настройками HTTP API.
		return true
	},
}

type WebSocketHandler struct {
	hub         *live.Hub
	raceService services.RaceService
	logger      *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, raceService services.RaceService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		raceService: raceService,
		logger:      logger,
	}
}

// ServeRaceUpdates подключает клиента к комнате гонки. События, записанные
// до подключения, не досылаются: клиент начинает с текущего момента.
func (h *WebSocketHandler) ServeRaceUpdates(w http.ResponseWriter, r *http.Request) {
	raceID, err := strconv.Atoi(chi.URLParam(r, "raceID"))
	if err != nil {
		notFoundResponse(w, r)
		return
	}

	if _, err := h.raceService.GetRace(r.Context(), raceID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed",
			slog.Int("race_id", raceID), slog.Any("error", err))
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: live.RoomForRace(raceID),
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
