package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/citykid/crm/internal/core"
	"github.com/citykid/crm/internal/logging"
	mw "github.com/citykid/crm/internal/web/middleware"
)

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSignup registers an account and signs it in.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.service.CreateUser(r.Context(), req.Email, req.Name, req.Password, req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.setSessionCookie(w, user.ID)
	logging.FromContext(r.Context()).Info("account created", "user_id", user.ID)
	writeJSONStatus(w, http.StatusCreated, user)
}

// handleLogin verifies credentials and issues a session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.service.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, core.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		respondStoreError(w, r, err, "login failed")
		return
	}

	s.setSessionCookie(w, user.ID)
	writeJSON(w, user)
}

// handleLogout drops the session and clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := mw.SessionToken(r, s.cfg.Session.CookieName); token != "" {
		s.sessions.Delete(token)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	writeJSON(w, map[string]string{"status": "signed out"})
}

// handleMe returns the authenticated account.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.GetUser(r.Context(), mw.UserID(r.Context()))
	if err != nil {
		respondStoreError(w, r, err, "load account failed")
		return
	}
	writeJSON(w, user)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, userID string) {
	sess := s.sessions.Create(userID)
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
}
