package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/PaddyOakTree/ai-project-planner/internal/middleware"
	"github.com/PaddyOakTree/ai-project-planner/internal/notifications"
)

// NotificationHandler is the HTTP surface of the notification dispatcher's
// recipient-scoped mutations.
type NotificationHandler struct {
	dispatcher *notifications.Dispatcher
}

func NewNotificationHandler(dispatcher *notifications.Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.dispatcher.List(r.Context(), user.ID, limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"notifications": items})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondBadRequest(w, "invalid notification id")
		return
	}

	if err := h.dispatcher.MarkRead(r.Context(), id, user.ID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	if err := h.dispatcher.MarkAllRead(r.Context(), user.ID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondBadRequest(w, "invalid notification id")
		return
	}

	if err := h.dispatcher.Delete(r.Context(), id, user.ID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *NotificationHandler) ClearRead(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	if err := h.dispatcher.ClearAllRead(r.Context(), user.ID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	prefs, err := h.dispatcher.Preferences(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, prefs)
}

func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	var patch map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	prefs, err := h.dispatcher.UpdatePreferences(r.Context(), user.ID, patch)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, prefs)
}
