package server

import (
	"net/http"
	"time"

	"nemsutalks/pkg/domain"
)

// userView is a user without the password hash.
type userView struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	StudentID string    `json:"studentId"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func viewUser(u domain.User) userView {
	return userView{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		StudentID: u.StudentID,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Message string    `json:"message"`
	Token   string    `json:"token"`
	IsAdmin bool      `json:"isAdmin"`
	User    *userView `json:"user,omitempty"`
}

type meResponse struct {
	IsAdmin bool      `json:"isAdmin"`
	User    *userView `json:"user,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.registerLimiter, "too many registration attempts") {
		s.audit(r, "portal.register", "rate_limited")
		return
	}
	var req domain.NewUser
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.Register(req)
	if err != nil {
		s.audit(r, "portal.register", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "portal.register", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"user":    viewUser(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "portal.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, err := s.app.Login(req.Identifier, req.Password)
	if err != nil {
		s.audit(r, "portal.login", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	resp := loginResponse{Message: sess.Message, Token: sess.Token, IsAdmin: sess.IsAdmin}
	if sess.User != nil {
		v := viewUser(*sess.User)
		resp.User = &v
		s.audit(r, "portal.login", "success", "user_id", v.ID)
	} else {
		s.audit(r, "portal.login", "success", "admin", true)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "portal.logout", "fail", "reason", "missing_token")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		s.audit(r, "portal.logout", "fail", "reason", err.Error())
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "portal.logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	if p.Admin {
		writeJSON(w, http.StatusOK, meResponse{IsAdmin: true})
		return
	}
	v := viewUser(p.User)
	writeJSON(w, http.StatusOK, meResponse{User: &v})
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := s.studentOnly(w, r)
	if !ok {
		return
	}
	var req domain.UserUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	current, _ := bearerToken(r)
	user, token, err := s.app.UpdateProfile(p.User.ID, current, req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	resp := map[string]any{"user": viewUser(user)}
	if token != "" {
		s.audit(r, "portal.password_change", "success", "user_id", user.ID)
		resp["token"] = token
	}
	writeJSON(w, http.StatusOK, resp)
}

