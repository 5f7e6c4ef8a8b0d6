package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/RAXITGAJERA/product-management/pkg/auth"
	"github.com/RAXITGAJERA/product-management/pkg/httputil"
	"github.com/RAXITGAJERA/product-management/pkg/rbac"
)

// safeNext validates a post-login redirect target. Only local absolute
// paths are accepted so the next parameter cannot bounce users off-site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return rbac.HomePath
	}
	return next
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if rbac.SubjectFromRequest(r) != nil {
		httputil.Redirect(w, r, rbac.HomePath)
		return
	}
	flash, hasFlash := httputil.PopFlash(w, r)
	resp := map[string]interface{}{
		"next": safeNext(r.URL.Query().Get("next")),
	}
	if hasFlash {
		resp["flash"] = flash
	}
	httputil.WriteSuccess(w, resp)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if rbac.SubjectFromRequest(r) != nil {
		httputil.Redirect(w, r, rbac.HomePath)
		return
	}
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInactiveUser) {
			if s.metrics != nil {
				s.metrics.LoginsTotal.WithLabelValues("failure").Inc()
			}
			httputil.WriteErrorMessage(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	session, err := s.sessions.Create(r.Context(), user.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}

	auth.SetSessionCookie(w, session)
	httputil.SetFlash(w, httputil.FlashSuccess, "Welcome back, "+user.Username+".")
	httputil.Redirect(w, r, safeNext(req.Next))
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if rbac.SubjectFromRequest(r) != nil {
		httputil.Redirect(w, r, rbac.HomePath)
		return
	}
	flash, hasFlash := httputil.PopFlash(w, r)
	resp := map[string]interface{}{
		"roles": rbac.Roles(),
	}
	if hasFlash {
		resp["flash"] = flash
	}
	httputil.WriteSuccess(w, resp)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if rbac.SubjectFromRequest(r) != nil {
		httputil.Redirect(w, r, rbac.HomePath)
		return
	}
	var req auth.RegisterInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if fields := auth.ValidateRegisterInput(req); len(fields) > 0 {
		httputil.WriteFieldErrors(w, fields)
		return
	}

	user, err := s.users.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			httputil.WriteFieldErrors(w, map[string]string{"username": "username already taken"})
		case errors.Is(err, auth.ErrEmailTaken):
			httputil.WriteFieldErrors(w, map[string]string{"email": "email already registered"})
		default:
			s.writeServiceError(w, r, err)
		}
		return
	}

	session, err := s.sessions.Create(r.Context(), user.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	auth.SetSessionCookie(w, session)
	httputil.SetFlash(w, httputil.FlashSuccess, "Account created. Welcome, "+user.Username+".")
	httputil.Redirect(w, r, rbac.HomePath)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil && cookie.Value != "" {
		if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
			s.logger.WithError(err).Error("failed to delete session on logout")
		}
	}
	auth.ClearSessionCookie(w)
	httputil.SetFlash(w, httputil.FlashInfo, "You have been logged out.")
	httputil.Redirect(w, r, rbac.LoginPath)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	user, err := s.users.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	stats, err := s.catalog.GetProfileStats(r.Context(), actor.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := map[string]interface{}{
		"user":        user,
		"role":        actor.Role,
		"permissions": rbac.Derive(actor.Role),
		"stats":       stats,
		"days_active": int(time.Since(user.DateJoined).Hours() / 24),
	}
	if flash, ok := httputil.PopFlash(w, r); ok {
		resp["flash"] = flash
	}
	httputil.WriteSuccess(w, resp)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req auth.ProfileUpdate
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), actor.ID, req)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			httputil.WriteFieldErrors(w, map[string]string{"email": "email already registered"})
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req passwordChangeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := s.users.ChangePassword(r.Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httputil.WriteFieldErrors(w, map[string]string{"current_password": "current password is incorrect"})
			return
		}
		s.writeServiceError(w, r, err)
		return
	}

	// Other sessions die with the old password.
	if err := s.sessions.DeleteForUser(r.Context(), actor.ID); err != nil {
		s.logger.WithError(err).Error("failed to invalidate sessions after password change")
	}
	auth.ClearSessionCookie(w)
	httputil.SetFlash(w, httputil.FlashSuccess, "Password changed. Please log in again.")
	httputil.Redirect(w, r, rbac.LoginPath)
}
