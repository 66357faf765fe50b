package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/auth"
	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/middleware"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/models/dto"
	"github.com/hongminglow/paygate/internal/storage"
)

// UserHandler is the admin-only user management surface. Balances are never
// writable here; they move only through the ledger.
type UserHandler struct {
	users storage.UserStore
	guard *middleware.Guard
	log   *zap.Logger
}

func NewUserHandler(users storage.UserStore, guard *middleware.Guard, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, guard: guard, log: log}
}

func (h *UserHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /users", h.guard.Require(models.CapManageUsers, h.handleList))
	mux.Handle("POST /users", h.guard.Require(models.CapManageUsers, h.handleCreate))
	mux.Handle("GET /users/{id}", h.guard.Require(models.CapManageUsers, h.handleGet))
	mux.Handle("PUT /users/{id}", h.guard.Require(models.CapManageUsers, h.handleUpdate))
	mux.Handle("DELETE /users/{id}", h.guard.Require(models.CapManageUsers, h.handleDelete))
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		writeError(w, h.log, "list users", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", users)
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)
	if msg := validateRegistration(name, email, phone, req.Password); msg != "" {
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}
	role, ok := models.ParseRole(strings.TrimSpace(req.Role))
	if !ok {
		respond.Error(w, http.StatusBadRequest, "Invalid role")
		return
	}
	hash, err := auth.HashSecret(req.Password)
	if err != nil {
		writeError(w, h.log, "hash password", err)
		return
	}
	created, err := h.users.CreateUser(r.Context(), models.User{
		Name:            name,
		Email:           email,
		Phone:           phone,
		Role:            role,
		PasswordHash:    hash,
		IsEmailVerified: req.IsEmailVerified,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		writeError(w, h.log, "create user", err)
		return
	}
	respond.JSON(w, http.StatusCreated, "User created", created)
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		h.storeError(w, "find user", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", user)
}

func (h *UserHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req models.AdminUserUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validateProfile(req.ProfileUpdate); msg != "" {
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}
	if req.Role != nil && !req.Role.Valid() {
		respond.Error(w, http.StatusBadRequest, "Invalid role")
		return
	}
	updated, err := h.users.UpdateProfile(r.Context(), id, req)
	if err != nil {
		h.storeError(w, "update user", err)
		return
	}
	respond.JSON(w, http.StatusOK, "User updated", updated)
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		h.storeError(w, "delete user", err)
		return
	}
	respond.JSON(w, http.StatusOK, "User deleted", nil)
}

func (h *UserHandler) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusBadRequest, "Email already in use")
	case errors.Is(err, storage.ErrConflict):
		// Users referenced by ledger history cannot be removed.
		respond.Error(w, http.StatusConflict, "User has transaction history")
	default:
		writeError(w, h.log, op, err)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "Invalid user id")
		return 0, false
	}
	return id, true
}
