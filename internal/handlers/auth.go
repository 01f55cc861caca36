package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/PaddyOakTree/ai-project-planner/internal/logger"
	"github.com/PaddyOakTree/ai-project-planner/internal/models"
)

// AuthStore is the slice of the user table the session layer needs.
type AuthStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserWithPassword(ctx context.Context, email string) (models.User, error)
	FindUserByContact(ctx context.Context, contact string) (models.User, error)
}

// AuthHandler provides signup and login, issuing the JWTs the engine's
// middleware verifies.
type AuthHandler struct {
	store  AuthStore
	secret []byte
	log    *logger.Logger
}

func NewAuthHandler(store AuthStore, secret string, log *logger.Logger) *AuthHandler {
	return &AuthHandler{store: store, secret: []byte(secret), log: log}
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") || len(req.Password) < 8 {
		respondBadRequest(w, "email and a password of at least 8 characters are required")
		return
	}

	if _, err := h.store.FindUserByContact(r.Context(), req.Email); err == nil {
		respondBadRequest(w, "email already registered")
		return
	} else if !errors.Is(err, models.ErrNotFound) {
		respondWithError(w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondWithError(w, err)
		return
	}

	user := models.User{Email: req.Email, Password: string(hashed), DisplayName: req.DisplayName}
	if err := h.store.CreateUser(r.Context(), &user); err != nil {
		respondWithError(w, err)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		respondWithError(w, err)
		return
	}

	user.Password = ""
	h.log.Info("user registered", "user_id", user.ID)
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{"user": user, "token": token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	user, err := h.store.GetUserWithPassword(r.Context(), req.Email)
	if errors.Is(err, models.ErrNotFound) {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials", Code: "unauthorized"})
		return
	}
	if err != nil {
		respondWithError(w, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		respondWithJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials", Code: "unauthorized"})
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		respondWithError(w, err)
		return
	}

	user.Password = ""
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"user": user, "token": token})
}

func (h *AuthHandler) issueToken(user models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":      user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"exp":          time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(h.secret)
}
