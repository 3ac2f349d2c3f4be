package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/veristat/apiserver/internal/auth"
	"github.com/veristat/apiserver/internal/services"
	"github.com/veristat/apiserver/internal/store"
)

// Credential bounds enforced at this boundary; the core below never sees a
// raw password outside these limits.
const (
	minUsernameLen   = 3
	maxUsernameLen   = 50
	minPasswordLen   = 6
	maxPasswordBytes = 72
)

// AuthHandler provides registration, login, logout, and profile endpoints.
type AuthHandler struct {
	userService    *services.UserService
	sessionService *services.SessionService
	tokens         *auth.TokenService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, sessionService *services.SessionService, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		userService:    userService,
		sessionService: sessionService,
		tokens:         tokens,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler, requireUser func(http.Handler) http.Handler) {
	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.With(requireUser).Get("/me", handler.Me)
}

// Register creates a new non-admin account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if message, ok := validateCredentials(req.Username, req.Password); !ok {
		writeError(w, http.StatusBadRequest, message)
		return
	}

	user, err := h.userService.Create(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateUsername) {
			writeError(w, http.StatusConflict, services.ErrDuplicateUsername.Error())
			return
		}
		if store.IsUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, RegisterResponse{Username: user.Username})
}

// Login verifies credentials, issues a token, and records it in the ledger.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Verify(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
			return
		}
		if store.IsUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	// Zero TTL means the configured default.
	token, err := h.tokens.Issue(user.Username, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	// Recording is not atomic with issuance; a crash in between leaves a
	// valid token with no ledger row, which the revocation check tolerates.
	if _, err := h.sessionService.Record(r.Context(), user.Username, token); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record session")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		IsAdmin:     user.IsAdmin,
	})
}

// Logout revokes the presented token. It is idempotent: revoking an already
// revoked or never-recorded token succeeds.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
		return
	}

	if err := h.sessionService.Revoke(r.Context(), token); err != nil {
		if store.IsUnavailable(err) {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to revoke token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func validateCredentials(username, password string) (string, bool) {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return "username must be 3-50 characters", false
	}
	if len(password) < minPasswordLen {
		return "password must be at least 6 characters", false
	}
	if len(password) > maxPasswordBytes {
		return "password cannot be longer than 72 bytes", false
	}
	return "", true
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	IsAdmin     bool   `json:"is_admin"`
}
