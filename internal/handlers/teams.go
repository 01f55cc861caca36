package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/PaddyOakTree/ai-project-planner/internal/authority"
	"github.com/PaddyOakTree/ai-project-planner/internal/hub"
	"github.com/PaddyOakTree/ai-project-planner/internal/invitations"
	"github.com/PaddyOakTree/ai-project-planner/internal/logger"
	"github.com/PaddyOakTree/ai-project-planner/internal/middleware"
	"github.com/PaddyOakTree/ai-project-planner/internal/models"
	"github.com/PaddyOakTree/ai-project-planner/internal/store"
)

// TeamHandler serves team CRUD, the member roster, and chat history.
type TeamHandler struct {
	teams       store.TeamStore
	memberships store.MembershipStore
	messages    store.MessageStore
	auth        *authority.Authority
	hub         *hub.Hub
	notifier    invitations.Notifier
	log         *logger.Logger
}

func NewTeamHandler(teams store.TeamStore, memberships store.MembershipStore,
	messages store.MessageStore, auth *authority.Authority, h *hub.Hub,
	notifier invitations.Notifier, log *logger.Logger) *TeamHandler {
	return &TeamHandler{
		teams:       teams,
		memberships: memberships,
		messages:    messages,
		auth:        auth,
		hub:         h,
		notifier:    notifier,
		log:         log,
	}
}

type teamRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	IsPublic bool   `json:"is_public"`
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" || len(req.Name) > 100 {
		respondBadRequest(w, "team name must be between 1 and 100 characters")
		return
	}

	now := time.Now().UTC()
	team := models.Team{
		Name:      req.Name,
		Category:  req.Category,
		IsPublic:  req.IsPublic,
		OwnerID:   user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.teams.CreateTeam(r.Context(), &team); err != nil {
		respondWithError(w, err)
		return
	}

	h.log.Info("team created", "team_id", team.ID, "owner", user.ID)
	respondWithJSON(w, http.StatusCreated, team)
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return
	}

	teams, err := h.teams.ListTeamsForUser(r.Context(), user.ID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, teamID, ok := h.teamRequest(w, r)
	if !ok {
		return
	}

	member, err := h.auth.IsMember(r.Context(), teamID, user.ID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	team, err := h.teams.GetTeam(r.Context(), teamID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if !member && !team.IsPublic {
		respondWithError(w, fmt.Errorf("team %d: %w", teamID, models.ErrPermissionDenied))
		return
	}
	respondWithJSON(w, http.StatusOK, team)
}

// Update mutates team details. Owner only.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, teamID, ok := h.teamRequest(w, r)
	if !ok {
		return
	}

	team, err := h.teams.GetTeam(r.Context(), teamID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if team.OwnerID != user.ID {
		respondWithError(w, fmt.Errorf("team %d: %w", teamID, models.ErrPermissionDenied))
		return
	}

	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	if req.Name == "" || len(req.Name) > 100 {
		respondBadRequest(w, "team name must be between 1 and 100 characters")
		return
	}

	team.Name = req.Name
	team.Category = req.Category
	team.IsPublic = req.IsPublic
	team.UpdatedAt = time.Now().UTC()
	if err := h.teams.UpdateTeam(r.Context(), &team); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, team)
}

func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, teamID, ok := h.teamRequest(w, r)
	if !ok {
		return
	}

	member, err := h.auth.IsMember(r.Context(), teamID, user.ID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if !member {
		respondWithError(w, fmt.Errorf("team %d: %w", teamID, models.ErrPermissionDenied))
		return
	}

	members, err := h.memberships.ListMembers(r.Context(), teamID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"members": members})
}

// RemoveMember removes a member (or lets one leave). The room is told via a
// member-left event and the removed user gets a role_change-category
// notification when someone else removed them.
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, teamID, ok := h.teamRequest(w, r)
	if !ok {
		return
	}
	targetID, err := strconv.ParseInt(mux.Vars(r)["userID"], 10, 64)
	if err != nil {
		respondBadRequest(w, "invalid user id")
		return
	}

	allowed, err := h.auth.CanRemoveMember(r.Context(), teamID, user.ID, targetID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if !allowed {
		respondWithError(w, fmt.Errorf("remove member %d from team %d: %w", targetID, teamID, models.ErrPermissionDenied))
		return
	}

	if err := h.memberships.DeleteMembership(r.Context(), teamID, targetID); err != nil {
		respondWithError(w, err)
		return
	}

	h.hub.Broadcast(teamID, models.Event{
		Event: models.EventMemberLeft,
		Payload: models.MemberPayload{
			TeamID: teamID,
			UserID: targetID,
			At:     time.Now().UTC(),
		},
	})
	if user.ID != targetID {
		if derr := h.notifier.Dispatch(r.Context(), targetID, models.NotifyRoleChange,
			"Removed from team",
			fmt.Sprintf("You were removed from team %d", teamID),
			fmt.Sprintf("team:%d", teamID), nil); derr != nil {
			h.log.Warn("removal notification failed", "user_id", targetID, "error", derr)
		}
	}

	h.log.Info("member removed", "team_id", teamID, "user_id", targetID, "acting_user", user.ID)
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// History serves the bounded recent-message load that seeds a joining
// client; live traffic flows through the hub only.
func (h *TeamHandler) History(w http.ResponseWriter, r *http.Request) {
	user, teamID, ok := h.teamRequest(w, r)
	if !ok {
		return
	}

	member, err := h.auth.IsMember(r.Context(), teamID, user.ID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if !member {
		respondWithError(w, fmt.Errorf("team %d: %w", teamID, models.ErrPermissionDenied))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := h.messages.ListRecentMessages(r.Context(), teamID, limit)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (h *TeamHandler) teamRequest(w http.ResponseWriter, r *http.Request) (models.User, int64, bool) {
	user, ok := middleware.CurrentUser(r)
	if !ok {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid token", Code: "unauthorized"})
		return models.User{}, 0, false
	}
	teamID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondBadRequest(w, "invalid team id")
		return models.User{}, 0, false
	}
	return user, teamID, true
}
