package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nbekov/race-control/models"
	"github.com/nbekov/race-control/services"
)

type RaceHandler struct {
	raceService      services.RaceService
	standingsService services.StandingsService
}

func NewRaceHandler(raceService services.RaceService, standingsService services.StandingsService) *RaceHandler {
	return &RaceHandler{
		raceService:      raceService,
		standingsService: standingsService,
	}
}

func raceIDFromURL(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "raceID"))
}

func (h *RaceHandler) ListRaces(w http.ResponseWriter, r *http.Request) {
	races, err := h.raceService.ListRaces(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, races, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) GetRace(w http.ResponseWriter, r *http.Request) {
	raceID, err := raceIDFromURL(r)
	if err != nil {
		notFoundResponse(w, r)
		return
	}

	race, err := h.raceService.GetRace(r.Context(), raceID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, race, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) GetRaceEntries(w http.ResponseWriter, r *http.Request) {
	raceID, err := raceIDFromURL(r)
	if err != nil {
		notFoundResponse(w, r)
		return
	}

	entries, err := h.raceService.ListEntries(r.Context(), raceID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, entries, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) GetRaceGaps(w http.ResponseWriter, r *http.Request) {
	raceID, err := raceIDFromURL(r)
	if err != nil {
		notFoundResponse(w, r)
		return
	}

	gaps, err := h.standingsService.RaceGaps(r.Context(), raceID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, gaps, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) CreateRace(w http.ResponseWriter, r *http.Request) {
	var input services.CreateRaceInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	race, err := h.raceService.CreateRace(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, race, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) StartRace(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RaceID int `json:"raceId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	race, err := h.raceService.StartRace(r.Context(), input.RaceID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, race, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RaceID      int `json:"raceId"`
		RacerID     int `json:"racerId"`
		NewPosition int `json:"newPosition"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entry, err := h.raceService.UpdatePosition(r.Context(), input.RaceID, input.RacerID, input.NewPosition)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, entry, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) MarkLap(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RaceID  int     `json:"raceId"`
		RacerID int     `json:"racerId"`
		LapTime float64 `json:"lapTime"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	lap, err := h.raceService.MarkLap(r.Context(), input.RaceID, input.RacerID, input.LapTime)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, lap, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) MarkPitStop(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RaceID   int             `json:"raceId"`
		RacerID  int             `json:"racerId"`
		TyreType models.TyreType `json:"tyreType"`
		PitTime  float64         `json:"pitTime"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pit, err := h.raceService.MarkPitStop(r.Context(), input.RaceID, input.RacerID, input.TyreType, input.PitTime)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, pit, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) MarkDNF(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RaceID  int `json:"raceId"`
		RacerID int `json:"racerId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	entry, err := h.raceService.MarkDNF(r.Context(), input.RaceID, input.RacerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, entry, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RaceHandler) FinalizeRace(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RaceID int `json:"raceId"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	race, err := h.raceService.FinalizeRace(r.Context(), input.RaceID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, race, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
