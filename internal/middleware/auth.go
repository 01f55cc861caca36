package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// Auth validates JWT bearer tokens and resolves the current user into the
// request context. It is the engine's only coupling to the session layer.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// Middleware authenticates via the Authorization header.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, `{"error":"missing auth token"}`, http.StatusUnauthorized)
			return
		}
		a.authenticate(w, r, next, strings.TrimPrefix(header, "Bearer "))
	})
}

// WebSocketMiddleware authenticates via a token query parameter, since
// browser websocket clients cannot set headers on the upgrade request.
func (a *Auth) WebSocketMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, `{"error":"missing auth token"}`, http.StatusUnauthorized)
			return
		}
		a.authenticate(w, r, next, token)
	})
}

func (a *Auth) authenticate(w http.ResponseWriter, r *http.Request, next http.Handler, tokenStr string) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
		return
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		http.Error(w, `{"error":"invalid token claims"}`, http.StatusUnauthorized)
		return
	}

	// JWT numbers decode as float64.
	id, ok := claims["user_id"].(float64)
	if !ok {
		http.Error(w, `{"error":"invalid token claims"}`, http.StatusUnauthorized)
		return
	}
	user := models.User{ID: int64(id)}
	user.Email, _ = claims["email"].(string)
	user.DisplayName, _ = claims["display_name"].(string)

	ctx := context.WithValue(r.Context(), userContextKey, user)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// CurrentUser extracts the authenticated user from the request context.
func CurrentUser(r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(userContextKey).(models.User)
	return user, ok
}

// JSONResponse sets the JSON content type on everything below it.
func JSONResponse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
