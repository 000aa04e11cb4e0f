package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/studyweave/studyweave/internal/apperror"
	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler serves /api/auth/*: registration, login, guest sessions,
// email verification, password reset, profile, and the GitHub OAuth flow.
type AuthHandler struct {
	svc    *service.AuthService
	github *auth.GitHubProvider // nil when OAuth is not configured
	logger *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, github *auth.GitHubProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, github: github, logger: logger}
}

// sessionResponse is the body of every endpoint that establishes a session.
type sessionResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// HandleRegister creates an account.
// POST /api/auth/register {"name","email","password","role"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name     string     `json:"name"`
		Email    string     `json:"email"`
		Password string     `json:"password"`
		Role     model.Role `json:"role"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Role == "" {
		body.Role = model.RoleParticipant
	}

	user, token, err := h.svc.Register(r.Context(), body.Name, body.Email, body.Password, body.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

// HandleLogin verifies credentials and returns a bearer token.
// POST /api/auth/login {"email","password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	user, token, err := h.svc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}

// HandleGuest creates an anonymous guest session.
// POST /api/auth/guest
func (h *AuthHandler) HandleGuest(w http.ResponseWriter, r *http.Request) {
	user, token, err := h.svc.Guest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, User: user})
}

// HandleMe returns the caller's profile.
// GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	user, err := h.svc.Profile(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateMe updates name/avatar.
// PUT /api/auth/me {"name","avatarUrl"}
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	var body struct {
		Name      string `json:"name"`
		AvatarURL string `json:"avatarUrl"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), id.UserID, body.Name, body.AvatarURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleVerifyEmail consumes a verification token.
// POST /api/auth/verify-email {"token"}
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), body.Token); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// HandleRequestReset mails a password reset token. Always 202, even for
// unknown addresses.
// POST /api/auth/request-reset {"email"}
func (h *AuthHandler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.RequestReset(r.Context(), body.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"sent": true})
}

// HandleResetPassword consumes a reset token.
// POST /api/auth/reset-password {"token","password"}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.svc.ResetPassword(r.Context(), body.Token, body.Password); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// HandleGitHubLogin starts the OAuth flow: sets the CSRF state cookie and
// redirects to GitHub.
// GET /api/auth/github/login
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.ValidationFailed("oauth", "GitHub sign-in is not configured"))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow and issues a session.
// GET /api/auth/github/callback?code=...&state=...
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, apperror.ValidationFailed("oauth", "GitHub sign-in is not configured"))
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeError(w, apperror.Unauthorized("OAuth state mismatch"))
		return
	}
	// The state is single-use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "authorization code is required"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("GitHub OAuth exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized("GitHub sign-in failed"))
		return
	}

	user, token, err := h.svc.GitHubSignIn(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, User: user})
}
