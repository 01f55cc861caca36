package main

import (
	"net/http"
	"os"

	ghandlers "github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"

	"github.com/PaddyOakTree/ai-project-planner/internal/authority"
	"github.com/PaddyOakTree/ai-project-planner/internal/config"
	"github.com/PaddyOakTree/ai-project-planner/internal/database"
	"github.com/PaddyOakTree/ai-project-planner/internal/handlers"
	"github.com/PaddyOakTree/ai-project-planner/internal/hub"
	"github.com/PaddyOakTree/ai-project-planner/internal/invitations"
	"github.com/PaddyOakTree/ai-project-planner/internal/logger"
	"github.com/PaddyOakTree/ai-project-planner/internal/middleware"
	"github.com/PaddyOakTree/ai-project-planner/internal/notifications"
	"github.com/PaddyOakTree/ai-project-planner/internal/ratelimit"
	"github.com/PaddyOakTree/ai-project-planner/internal/routes"
	"github.com/PaddyOakTree/ai-project-planner/internal/store"
)

func main() {
	log := logger.New("server")
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	defer db.Close()

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		limiter = ratelimit.NewRedis(rdb)
	} else {
		log.Warn("REDIS_ADDR not set, invitation rate state is process-local")
		limiter = ratelimit.NewMemory()
	}

	st := store.NewMySQL(db)
	auth := authority.New(st, st)
	broadcastHub := hub.New(st, logger.New("hub"))
	dispatcher := notifications.NewDispatcher(st, st, broadcastHub, logger.New("notifications"))
	invitationSvc := invitations.NewService(invitations.Deps{
		Teams:       st,
		Memberships: st,
		Users:       st,
		Invitations: st,
		Authority:   auth,
		Notifier:    dispatcher,
		Broadcaster: broadcastHub,
		Limiter:     limiter,
		Log:         logger.New("invitations"),
	})

	authMW := middleware.NewAuth(cfg.JWTSecret)
	router := routes.Register(routes.Handlers{
		Auth:          handlers.NewAuthHandler(st, cfg.JWTSecret, logger.New("auth")),
		Teams:         handlers.NewTeamHandler(st, st, st, auth, broadcastHub, dispatcher, logger.New("teams")),
		Invitations:   handlers.NewInvitationHandler(invitationSvc),
		Notifications: handlers.NewNotificationHandler(dispatcher),
		WebSocket:     handlers.NewWebSocketHandler(broadcastHub, auth, logger.New("websocket")),
		AuthMW:        authMW,
	})

	cors := ghandlers.CORS(
		ghandlers.AllowedOrigins([]string{"*"}),
		ghandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		ghandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	log.Info("server listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, cors(ghandlers.CombinedLoggingHandler(os.Stdout, router))); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}
