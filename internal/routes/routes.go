package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/PaddyOakTree/ai-project-planner/internal/handlers"
	"github.com/PaddyOakTree/ai-project-planner/internal/middleware"
)

// Handlers collects the constructed handlers the router wires up. All
// dependencies are injected by the caller; nothing here reaches for globals.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Teams         *handlers.TeamHandler
	Invitations   *handlers.InvitationHandler
	Notifications *handlers.NotificationHandler
	WebSocket     *handlers.WebSocketHandler
	AuthMW        *middleware.Auth
}

// Register builds the full router.
func Register(h Handlers) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)

	public := router.PathPrefix("/auth").Subrouter()
	public.Use(middleware.JSONResponse)
	public.HandleFunc("/signup", h.Auth.Signup).Methods(http.MethodPost)
	public.HandleFunc("/login", h.Auth.Login).Methods(http.MethodPost)

	teams := router.PathPrefix("/teams").Subrouter()
	teams.Use(h.AuthMW.Middleware, middleware.JSONResponse)
	teams.HandleFunc("", h.Teams.Create).Methods(http.MethodPost)
	teams.HandleFunc("", h.Teams.List).Methods(http.MethodGet)
	teams.HandleFunc("/{id:[0-9]+}", h.Teams.Get).Methods(http.MethodGet)
	teams.HandleFunc("/{id:[0-9]+}", h.Teams.Update).Methods(http.MethodPut)
	teams.HandleFunc("/{id:[0-9]+}/members", h.Teams.ListMembers).Methods(http.MethodGet)
	teams.HandleFunc("/{id:[0-9]+}/members/{userID:[0-9]+}", h.Teams.RemoveMember).Methods(http.MethodDelete)
	teams.HandleFunc("/{id:[0-9]+}/messages", h.Teams.History).Methods(http.MethodGet)

	invitations := router.PathPrefix("/invitations").Subrouter()
	invitations.Use(h.AuthMW.Middleware, middleware.JSONResponse)
	invitations.HandleFunc("", h.Invitations.Create).Methods(http.MethodPost)
	invitations.HandleFunc("", h.Invitations.ListPending).Methods(http.MethodGet)
	invitations.HandleFunc("/{id}/accept", h.Invitations.Accept).Methods(http.MethodPost)
	invitations.HandleFunc("/{id}/reject", h.Invitations.Reject).Methods(http.MethodPost)
	invitations.HandleFunc("/{id}/cancel", h.Invitations.Cancel).Methods(http.MethodPost)
	invitations.HandleFunc("/{id}", h.Invitations.Delete).Methods(http.MethodDelete)

	notifications := router.PathPrefix("/notifications").Subrouter()
	notifications.Use(h.AuthMW.Middleware, middleware.JSONResponse)
	notifications.HandleFunc("", h.Notifications.List).Methods(http.MethodGet)
	notifications.HandleFunc("/preferences", h.Notifications.GetPreferences).Methods(http.MethodGet)
	notifications.HandleFunc("/preferences", h.Notifications.UpdatePreferences).Methods(http.MethodPut)
	notifications.HandleFunc("/read-all", h.Notifications.MarkAllRead).Methods(http.MethodPost)
	notifications.HandleFunc("/read", h.Notifications.ClearRead).Methods(http.MethodDelete)
	notifications.HandleFunc("/{id:[0-9]+}/read", h.Notifications.MarkRead).Methods(http.MethodPost)
	notifications.HandleFunc("/{id:[0-9]+}", h.Notifications.Delete).Methods(http.MethodDelete)

	router.Handle("/ws", h.AuthMW.WebSocketMiddleware(http.HandlerFunc(h.WebSocket.Handle))).Methods(http.MethodGet)

	return router
}
