package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nbekov/race-control/middleware"
	"github.com/nbekov/race-control/services"
)

type RacerHandler struct {
	racerService services.RacerService
}

func NewRacerHandler(racerService services.RacerService) *RacerHandler {
	return &RacerHandler{racerService: racerService}
}

func (h *RacerHandler) CreateRacer(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	var input services.CreateRacerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	racer, err := h.racerService.CreateRacer(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, racer, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RacerHandler) ListRacers(w http.ResponseWriter, r *http.Request) {
	racers, err := h.racerService.ListRacers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, racers, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RacerHandler) UpdateRacer(w http.ResponseWriter, r *http.Request) {
	racerID, err := strconv.Atoi(chi.URLParam(r, "racerID"))
	if err != nil {
		notFoundResponse(w, r)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	var input services.UpdateRacerInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	racer, err := h.racerService.UpdateRacer(r.Context(), racerID, currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, racer, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RacerHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	racerID, err := strconv.Atoi(chi.URLParam(r, "racerID"))
	if err != nil {
		notFoundResponse(w, r)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	racer, err := h.racerService.UploadPhoto(r.Context(), racerID, currentUserID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, racer, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
