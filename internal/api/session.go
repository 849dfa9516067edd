package api

import (
	"net/http"

	"tripplanner/internal/models"
)

type sessionView struct {
	User     *models.User `json:"user"`
	Initials string       `json:"initials,omitempty"`
}

func newSessionView(user *models.User) sessionView {
	view := sessionView{User: user}
	if user != nil {
		view.Initials = user.Initials()
	}
	return view
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(s.deps.Sessions.Current()))
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body signInRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.deps.Sessions.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(user))
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body signUpRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := s.deps.Sessions.SignUp(r.Context(), body.Name, body.Email, body.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(user))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.deps.Sessions.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
