package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sulamboard/internal/service"
	"sulamboard/internal/transport/rest/middleware"
)

// LeaderboardHandler serves the leaderboard list, display, and editor
// endpoints.
type LeaderboardHandler struct {
	lbSvc    *service.LeaderboardService
	scoreSvc *service.ScoreService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(lbSvc *service.LeaderboardService, scoreSvc *service.ScoreService) *LeaderboardHandler {
	return &LeaderboardHandler{lbSvc: lbSvc, scoreSvc: scoreSvc}
}

// List handles GET /v1/leaderboards with an optional org query param.
func (h *LeaderboardHandler) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	overview, err := h.lbSvc.Overview(r.Context(), sess.Data.BackendToken, sess.Data.User, r.URL.Query().Get("org"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// Get handles GET /v1/leaderboards/{id}: the record with its latest score
// snapshot. A cached snapshot is served when the poller already has one,
// otherwise scores are fetched now.
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess := middleware.GetSession(r.Context())

	snap, err := h.scoreSvc.Cached(r.Context(), id)
	if err != nil || snap == nil {
		snap, err = h.scoreSvc.Fetch(r.Context(), sess.Data.BackendToken, id)
		if err != nil {
			handleError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, snap)
}

// Editor handles GET /v1/leaderboards/{id}/editor and
// GET /v1/leaderboards/editor/defaults. Times render in the tz query
// param's zone, defaulting to UTC.
func (h *LeaderboardHandler) Editor(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	loc := locFromQuery(r)

	id, ok := mux.Vars(r)["id"]
	if !ok || id == "" {
		writeJSON(w, http.StatusOK, h.lbSvc.EditorDefaults(time.Now(), loc))
		return
	}

	lb, err := h.lbSvc.Get(r.Context(), sess.Data.BackendToken, id)
	if err != nil {
		handleError(w, err)
		return
	}
	ros, err := h.lbSvc.Roster(r.Context(), sess.Data.BackendToken)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.lbSvc.EditorStateFor(ros, lb, loc))
}

// Create handles POST /v1/leaderboards
func (h *LeaderboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft service.LeaderboardDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess := middleware.GetSession(r.Context())
	if err := h.lbSvc.Create(r.Context(), sess.Data.BackendToken, sess.Data.User, &draft); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

// Update handles PUT /v1/leaderboards/{id}
func (h *LeaderboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	var draft service.LeaderboardDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := mux.Vars(r)["id"]
	sess := middleware.GetSession(r.Context())
	if err := h.lbSvc.Update(r.Context(), sess.Data.BackendToken, id, sess.Data.User, &draft); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// Delete handles DELETE /v1/leaderboards/{id}
func (h *LeaderboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess := middleware.GetSession(r.Context())
	if err := h.lbSvc.Delete(r.Context(), sess.Data.BackendToken, id, sess.Data.User); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func locFromQuery(r *http.Request) *time.Location {
	if tz := r.URL.Query().Get("tz"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return time.UTC
}
