package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/musterapp/muster/internal/domain"
	"github.com/musterapp/muster/internal/metrics"
	"github.com/musterapp/muster/internal/service"
	"github.com/musterapp/muster/internal/store"
	"github.com/musterapp/muster/pkg/httpx"
	"github.com/musterapp/muster/pkg/slogx"
)

// AuthHandler serves the authentication endpoints. Token issuance goes through
// TokenService; the session cache itself is populated by the pipeline from the
// receipts these handlers leave behind.
type AuthHandler struct {
	Users  *service.UserService
	Tokens *service.TokenService
}

type credentialsRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

type userResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type sessionResponse struct {
	User      userResponse `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

// Register handles POST /v1/auth/register. A successful registration is also a
// login: the new user walks away with a live session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Users.Register(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists):
			httpx.WriteError(w, http.StatusConflict, "username already taken")
		case errors.Is(err, service.ErrInvalidUsername), errors.Is(err, service.ErrInsecurePassword):
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			slogx.FromContext(r.Context()).Error("register failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	h.issueSession(w, r, u, "register", http.StatusCreated)
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		slogx.FromContext(r.Context()).Error("login failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.issueSession(w, r, u, "login", http.StatusOK)
}

// RefreshToken handles POST /v1/auth/refresh-token. The presented refresh
// token is single-use; a successful call rotates both tokens.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refresh := cookieValue(r, RefreshTokenCookie)
	if refresh == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	pair, userID, err := h.Tokens.Refresh(r.Context(), refresh)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			clearTokenCookies(w)
			httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		slogx.FromContext(r.Context()).Error("refresh failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	u, err := h.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		slogx.FromContext(r.Context()).Error("refresh user lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	setTokenCookies(w, pair)
	recordReceipt(r, userID, pair)
	metrics.SessionsIssued.WithLabelValues("refresh").Inc()

	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		User:      toUserResponse(u),
		ExpiresAt: pair.AccessExpiresAt,
	})
}

// Logout handles POST /v1/auth/logout. The pipeline has already removed the
// cache entry by the time this runs; the handler retires the refresh record
// and clears cookies. Safe to call without a session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	access := cookieValue(r, AccessTokenCookie)
	refresh := cookieValue(r, RefreshTokenCookie)

	if err := h.Tokens.Revoke(r.Context(), access, refresh); err != nil {
		slogx.FromContext(r.Context()).Error("logout failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	clearTokenCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll handles POST /v1/auth/logout-all. Protected; ends every session of
// the authenticated user.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.Tokens.RevokeAll(r.Context(), userID); err != nil {
		slogx.FromContext(r.Context()).Error("logout-all failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	clearTokenCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /v1/auth/me. Protected; returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	u, err := h.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		slogx.FromContext(r.Context()).Error("me lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

type updateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

// UpdateMe handles PATCH /v1/auth/me. Protected; changes the display name.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.Users.UpdateDisplayName(r.Context(), userID, req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDisplayName) {
			httpx.WriteError(w, http.StatusBadRequest, "display_name must not be empty")
			return
		}
		slogx.FromContext(r.Context()).Error("profile update failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// DeleteMe handles DELETE /v1/auth/me. Protected; revokes every session, then
// deletes the account.
func (h *AuthHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.Tokens.RevokeAll(r.Context(), userID); err != nil {
		slogx.FromContext(r.Context()).Error("account deletion revoke failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.Users.DeleteAccount(r.Context(), userID); err != nil {
		slogx.FromContext(r.Context()).Error("account deletion failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	clearTokenCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, u domain.User, trigger string, status int) {
	pair, err := h.Tokens.Issue(r.Context(), u.ID)
	if err != nil {
		slogx.FromContext(r.Context()).Error("token issuance failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}

	setTokenCookies(w, pair)
	recordReceipt(r, u.ID, pair)
	metrics.SessionsIssued.WithLabelValues(trigger).Inc()

	httpx.WriteJSON(w, status, sessionResponse{
		User:      toUserResponse(u),
		ExpiresAt: pair.AccessExpiresAt,
	})
}

func recordReceipt(r *http.Request, userID string, pair domain.TokenPair) {
	if tr := receiptFromContext(r.Context()); tr != nil {
		tr.set(userID, pair.AccessToken, pair.AccessExpiresAt)
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func setTokenCookies(w http.ResponseWriter, pair domain.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    pair.RefreshToken,
		Path:     "/v1/auth",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    "",
		Path:     "/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
