package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/auth"
	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/middleware"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/models/dto"
	"github.com/hongminglow/paygate/internal/notify"
	"github.com/hongminglow/paygate/internal/storage"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// AuthOptions carries the settings the auth endpoints depend on.
type AuthOptions struct {
	ClientURL    string
	CookieSecure bool
}

// AuthHandler owns registration, login and the session cookie lifecycle.
type AuthHandler struct {
	users    storage.UserStore
	sessions *auth.Sessions
	guard    *middleware.Guard
	mailer   notify.Mailer
	opts     AuthOptions
	log      *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(users storage.UserStore, sessions *auth.Sessions, guard *middleware.Guard, mailer notify.Mailer, opts AuthOptions, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, guard: guard, mailer: mailer, opts: opts, log: log}
}

// Register attaches auth routes to the mux.
func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("GET /auth/refresh-token", h.handleRefresh)
	mux.HandleFunc("GET /auth/verify-email/{token}", h.handleVerifyEmail)
	mux.Handle("GET /auth/logout", h.guard.RequireAuth(http.HandlerFunc(h.handleLogout)))
	mux.Handle("GET /auth/me", h.guard.RequireAuth(http.HandlerFunc(h.handleMe)))
	mux.Handle("PUT /auth/updatedetails", h.guard.RequireAuth(http.HandlerFunc(h.handleUpdateDetails)))
	mux.Handle("PUT /auth/updatepassword", h.guard.RequireAuth(http.HandlerFunc(h.handleUpdatePassword)))
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
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
	passwordHash, err := auth.HashSecret(req.Password)
	if err != nil {
		writeError(w, h.log, "hash password", err)
		return
	}
	token, err := verificationToken()
	if err != nil {
		writeError(w, h.log, "generate verification token", err)
		return
	}

	created, err := h.users.CreateUser(r.Context(), models.User{
		Name:              name,
		Email:             email,
		Phone:             phone,
		Role:              role,
		PasswordHash:      passwordHash,
		VerificationToken: token,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusBadRequest, "User already exists")
			return
		}
		writeError(w, h.log, "create user", err)
		return
	}

	link := fmt.Sprintf("%s/verify-email/%s", h.opts.ClientURL, token)
	if err := h.mailer.Send(r.Context(), notify.Message{
		To:      created.Email,
		Subject: "Email Verification",
		Body:    fmt.Sprintf("Hello %s,\n\nPlease verify your email by opening this link:\n%s\n", created.Name, link),
	}); err != nil {
		h.log.Warn("send verification email", zap.Int64("user_id", created.ID), zap.Error(err))
	}

	issued, err := h.sessions.Issue(r.Context(), created)
	if err != nil {
		writeError(w, h.log, "issue tokens", err)
		return
	}
	setSessionCookies(w, issued, h.opts.CookieSecure)
	respond.JSON(w, http.StatusCreated, "User registered successfully", dto.LoginResponse{Token: issued.AccessToken, User: created})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "Please provide an email and password")
		return
	}
	issued, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.log, "login", err)
		return
	}
	setSessionCookies(w, issued, h.opts.CookieSecure)
	respond.JSON(w, http.StatusOK, "Login successful", dto.LoginResponse{Token: issued.AccessToken, User: issued.User})
}

func (h *AuthHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(auth.RefreshCookie)
	if err != nil || c.Value == "" {
		respond.Error(w, http.StatusUnauthorized, "No refresh token")
		return
	}
	issued, err := h.sessions.Refresh(r.Context(), c.Value)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			clearSessionCookies(w, h.opts.CookieSecure)
		}
		writeError(w, h.log, "refresh token", err)
		return
	}
	setSessionCookies(w, issued, h.opts.CookieSecure)
	respond.JSON(w, http.StatusOK, "Token refreshed", dto.TokenResponse{Token: issued.AccessToken})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.RefreshCookie); err == nil {
		if err := h.sessions.Logout(r.Context(), c.Value); err != nil {
			h.log.Warn("revoke refresh token", zap.Error(err))
		}
	}
	clearSessionCookies(w, h.opts.CookieSecure)
	respond.JSON(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindByVerificationToken(r.Context(), r.PathValue("token"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusBadRequest, "Invalid verification token")
			return
		}
		writeError(w, h.log, "find verification token", err)
		return
	}
	if err := h.users.MarkEmailVerified(r.Context(), user.ID); err != nil {
		writeError(w, h.log, "mark email verified", err)
		return
	}
	respond.JSON(w, http.StatusOK, "Email verified successfully", nil)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	respond.JSON(w, http.StatusOK, "OK", user)
}

func (h *AuthHandler) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req models.ProfileUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validateProfile(req); msg != "" {
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}
	updated, err := h.users.UpdateProfile(r.Context(), user.ID, models.AdminUserUpdate{ProfileUpdate: req})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			respond.Error(w, http.StatusBadRequest, "Email already in use")
			return
		}
		writeError(w, h.log, "update profile", err)
		return
	}
	respond.JSON(w, http.StatusOK, "Profile updated", updated)
}

func (h *AuthHandler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req dto.UpdatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !auth.CompareSecret(user.PasswordHash, req.CurrentPassword) {
		respond.Error(w, http.StatusUnauthorized, "Password is incorrect")
		return
	}
	if msg := validatePassword(req.NewPassword); msg != "" {
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}
	hash, err := auth.HashSecret(req.NewPassword)
	if err != nil {
		writeError(w, h.log, "hash password", err)
		return
	}
	if err := h.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		writeError(w, h.log, "update password", err)
		return
	}
	issued, err := h.sessions.Issue(r.Context(), user)
	if err != nil {
		writeError(w, h.log, "issue tokens", err)
		return
	}
	setSessionCookies(w, issued, h.opts.CookieSecure)
	respond.JSON(w, http.StatusOK, "Password updated", dto.LoginResponse{Token: issued.AccessToken, User: user})
}

// Validators return a user-facing message, or "" when the input is acceptable.

func validateRegistration(name, email, phone, password string) string {
	if name == "" || email == "" {
		return "Please provide name, email and password"
	}
	if utf8.RuneCountInString(name) > 50 {
		return "Name cannot be more than 50 characters"
	}
	if !validEmail(email) {
		return "Please provide a valid email"
	}
	if phone != "" && !phonePattern.MatchString(phone) {
		return "Please provide a valid 10-digit phone number"
	}
	return validatePassword(password)
}

func validateProfile(p models.ProfileUpdate) string {
	if p.Name != nil && (strings.TrimSpace(*p.Name) == "" || utf8.RuneCountInString(*p.Name) > 50) {
		return "Name must be between 1 and 50 characters"
	}
	if p.Email != nil && !validEmail(*p.Email) {
		return "Please provide a valid email"
	}
	if p.Phone != nil && *p.Phone != "" && !phonePattern.MatchString(*p.Phone) {
		return "Please provide a valid 10-digit phone number"
	}
	return ""
}

func validatePassword(password string) string {
	if utf8.RuneCountInString(password) < 6 {
		return "Password must be at least 6 characters"
	}
	return ""
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, "@")
}

func verificationToken() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
