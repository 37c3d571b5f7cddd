package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nbekov/race-control/services"
)

type EventHandler struct {
	raceService services.RaceService
}

func NewEventHandler(raceService services.RaceService) *EventHandler {
	return &EventHandler{raceService: raceService}
}

// ListRaceEvents возвращает полную ленту событий гонки в порядке записи.
func (h *EventHandler) ListRaceEvents(w http.ResponseWriter, r *http.Request) {
	raceID, err := strconv.Atoi(chi.URLParam(r, "raceID"))
	if err != nil {
		notFoundResponse(w, r)
		return
	}

	events, err := h.raceService.ListEvents(r.Context(), raceID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, events, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
