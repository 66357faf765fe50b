package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/auth"
	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/models/dto"
	"github.com/hongminglow/paygate/internal/storage"
)

var adminStartingBalance = decimal.NewFromInt(10000)

// SetupHandler bootstraps an admin account. The server only registers it in
// development.
type SetupHandler struct {
	users storage.UserStore
	log   *zap.Logger
}

func NewSetupHandler(users storage.UserStore, log *zap.Logger) *SetupHandler {
	return &SetupHandler{users: users, log: log}
}

func (h *SetupHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /setup/create-admin", h.handleCreateAdmin)
}

func (h *SetupHandler) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAdminRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if msg := validateRegistration(name, email, "", req.Password); msg != "" {
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}
	hash, err := auth.HashSecret(req.Password)
	if err != nil {
		writeError(w, h.log, "hash password", err)
		return
	}
	admin, err := h.users.CreateUser(r.Context(), models.User{
		Name:            name,
		Email:           email,
		Role:            models.RoleAdmin,
		PasswordHash:    hash,
		Balance:         adminStartingBalance,
		IsEmailVerified: true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		writeError(w, h.log, "create admin", err)
		return
	}
	h.log.Info("admin account created", zap.Int64("user_id", admin.ID))
	respond.JSON(w, http.StatusCreated, "Admin user created successfully", admin)
}
