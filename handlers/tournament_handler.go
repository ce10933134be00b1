package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/courtsync/courtsync/models"
	"github.com/courtsync/courtsync/services"
)

type TournamentHandler struct {
	service *services.TournamentService
}

func NewTournamentHandler(service *services.TournamentService) *TournamentHandler {
	return &TournamentHandler{service: service}
}

type createTournamentRequest struct {
	Name     string                    `json:"name"`
	Type     models.TournamentType     `json:"type"`
	Settings models.TournamentSettings `json:"settings"`
	Teams    []*models.Team            `json:"teams"`
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	t := &models.Tournament{
		Name:     req.Name,
		Type:     req.Type,
		Settings: req.Settings,
		Teams:    req.Teams,
	}
	if err := h.service.Create(r.Context(), t); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"tournament": t}, nil)
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournament": t}, nil)
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *models.TournamentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := models.TournamentStatus(s)
		status = &st
	}
	tournaments, err := h.service.List(r.Context(), status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil)
}

func (h *TournamentHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	bs, err := h.service.GenerateBracket(r.Context(), chi.URLParam(r, "tournamentID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"bracket": bs}, nil)
}

func (h *TournamentHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Start(r.Context(), chi.URLParam(r, "tournamentID")); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"status": models.TournamentStatusInProgress}, nil)
}

type seedPoolWinnersRequest struct {
	WinnerIDs []string `json:"winner_ids"`
}

func (h *TournamentHandler) SeedPoolWinners(w http.ResponseWriter, r *http.Request) {
	var req seedPoolWinnersRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.service.SeedPoolWinners(r.Context(), chi.URLParam(r, "tournamentID"), req.WinnerIDs); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"playoff_seeded": true}, nil)
}
