package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/PaddyOakTree/ai-project-planner/internal/invitations"
	"github.com/PaddyOakTree/ai-project-planner/internal/middleware"
	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

// InvitationHandler is the HTTP surface of the invitation lifecycle manager.
type InvitationHandler struct {
	service *invitations.Service
}

func NewInvitationHandler(service *invitations.Service) *InvitationHandler {
	return &InvitationHandler{service: service}
}

type createInvitationRequest struct {
	TeamID  int64  `json:"team_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	var req createInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.TeamID == 0 || req.Email == "" {
		respondBadRequest(w, "team_id and email are required")
		return
	}

	inv, err := h.service.Create(r.Context(), req.TeamID, user.ID, req.Email, models.Role(req.Role), req.Message)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, inv)
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, invitations.ActionAccept)
}

func (h *InvitationHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, invitations.ActionReject)
}

func (h *InvitationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, invitations.ActionCancel)
}

func (h *InvitationHandler) resolve(w http.ResponseWriter, r *http.Request, action invitations.Action) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	inv, err := h.service.Resolve(r.Context(), mux.Vars(r)["id"], user.ID, action)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, inv)
}

func (h *InvitationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	if err := h.service.Delete(r.Context(), mux.Vars(r)["id"], user.ID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListPending returns the caller's actionable invitations.
func (h *InvitationHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	invs, err := h.service.ListPendingFor(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"invitations": invs})
}
