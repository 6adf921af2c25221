package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boomlift-maintenance/internal/auth"
	"github.com/ukydev/boomlift-maintenance/internal/db"
	"github.com/ukydev/boomlift-maintenance/internal/middleware"
	"github.com/ukydev/boomlift-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuthHandler serves technician sign-in and the account endpoints.
type AuthHandler struct {
	authService *auth.Service
	users       db.UserCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, users db.UserCollection) *AuthHandler {
	return &AuthHandler{authService: authService, users: users}
}

// Login exchanges a username and password for a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	// unknown usernames and wrong passwords get the same answer
	user, err := h.users.FindUserByUsername(r.Context(), req.Username)
	if err != nil || !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if !user.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	if err := h.users.RecordLogin(r.Context(), user.ID.Hex()); err != nil {
		log.WithError(err).WithField("username", user.Username).Warn("Failed to record login")
	}
	log.WithFields(log.Fields{"username": user.Username, "role": user.Role}).Info("User logged in")

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// Register creates a mechanic or installer account. Admin accounts are only
// created from the command line.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := auth.ValidateAccount(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Role == models.RoleAdmin {
		http.Error(w, "Admin accounts cannot be self-registered", http.StatusForbidden)
		return
	}

	exists, err := h.users.AccountExists(r.Context(), req.Username, req.Email)
	if err != nil {
		log.WithError(err).WithField("username", req.Username).Error("Failed to check account")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "Username or email already exists", http.StatusConflict)
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		DisplayName:  displayNameOf(req),
		IsActive:     true,
	}
	if err := h.users.InsertUser(r.Context(), user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			http.Error(w, "Username or email already exists", http.StatusConflict)
			return
		}
		log.WithError(err).WithField("username", user.Username).Error("Failed to create user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}
	log.WithFields(log.Fields{"username": user.Username, "role": user.Role}).Info("User registered")

	token, err := h.authService.GenerateToken(&user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, models.LoginResponse{Token: token, User: user})
}

// GetProfile returns the signed-in technician's account.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	user, err := h.users.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ChangePassword replaces the signed-in technician's password after checking
// the current one.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		http.Error(w, "Current password and new password are required", http.StatusBadRequest)
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.users.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if !h.authService.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		http.Error(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	hash, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}
	if err := h.users.SetPasswordHash(r.Context(), claims.UserID, hash); err != nil {
		log.WithError(err).WithField("user_id", claims.UserID).Error("Failed to update password")
		http.Error(w, "Failed to update password", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// ListUsers returns every technician account, optionally filtered by role
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if role := models.Role(r.URL.Query().Get("role")); role != "" {
		if !models.IsValidRole(role) {
			http.Error(w, "Invalid role", http.StatusBadRequest)
			return
		}
		filter["role"] = role
	}

	users, err := h.users.FindUsers(r.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list users")
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func displayNameOf(req models.RegisterRequest) string {
	if name := strings.TrimSpace(req.DisplayName); name != "" {
		return name
	}
	return req.Username
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}
