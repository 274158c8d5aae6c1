package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/parley-chat/parley/internal/apperr"
	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

type AuthHandler struct {
	Store     store.Store
	JWTSecret string
	TokenTTL  time.Duration
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 || len(req.Username) > 32 {
		fail(w, apperr.Validationf("username must be between 3 and 32 characters"))
		return
	}
	if len(req.Password) < 8 {
		fail(w, apperr.Validationf("password must be at least 8 characters"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		fail(w, err)
		return
	}
	user := &models.User{
		Username:    req.Username,
		Password:    hash,
		DisplayName: strings.TrimSpace(req.DisplayName),
	}
	if err := h.Store.CreateUser(user); err != nil {
		fail(w, err)
		return
	}
	respond(w, http.StatusCreated, "user created", user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		fail(w, err)
		return
	}

	user, err := h.Store.GetUserByUsername(req.Username)
	if err != nil || !auth.CheckPassword(user.Password, req.Password) {
		fail(w, apperr.Unauthorized("invalid username or password"))
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, user.ID, user.Username, h.TokenTTL)
	if err != nil {
		fail(w, err)
		return
	}
	respond(w, http.StatusOK, "", models.LoginResponse{Token: token, User: *user})
}
