package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/courtsync/courtsync/models"
	"github.com/courtsync/courtsync/services"
)

type MatchHandler struct {
	service *services.MatchService
}

func NewMatchHandler(service *services.MatchService) *MatchHandler {
	return &MatchHandler{service: service}
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	match, err := h.service.Get(r.Context(), chi.URLParam(r, "tournamentID"), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	var round *int
	if rs := r.URL.Query().Get("round"); rs != "" {
		n, err := strconv.Atoi(rs)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		round = &n
	}
	var status *models.MatchStatus
	if ss := r.URL.Query().Get("status"); ss != "" {
		st := models.MatchStatus(ss)
		status = &st
	}

	matches, err := h.service.List(r.Context(), chi.URLParam(r, "tournamentID"), round, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}

func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	err := h.service.Start(r.Context(), chi.URLParam(r, "tournamentID"), chi.URLParam(r, "matchID"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"status": models.MatchStatusInProgress}, nil)
}

type updateScoreRequest struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

func (h *MatchHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	var req updateScoreRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	err := h.service.UpdateScore(r.Context(), chi.URLParam(r, "tournamentID"), chi.URLParam(r, "matchID"), req.Team1, req.Team2)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"score": models.Score{Team1: req.Team1, Team2: req.Team2}}, nil)
}

type endMatchRequest struct {
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
}

func (h *MatchHandler) End(w http.ResponseWriter, r *http.Request) {
	var req endMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	err := h.service.End(r.Context(), chi.URLParam(r, "tournamentID"), chi.URLParam(r, "matchID"), req.WinnerID, req.LoserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"status": models.MatchStatusCompleted}, nil)
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Court       string    `json:"court"`
}

func (h *MatchHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	err := h.service.Reschedule(r.Context(), chi.URLParam(r, "tournamentID"), chi.URLParam(r, "matchID"), req.ScheduledAt, req.Court)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"rescheduled": true}, nil)
}
