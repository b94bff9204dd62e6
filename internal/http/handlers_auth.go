package http

import (
	"net/http"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	BirthDate string `json:"birth_date"`
}

type userRef struct {
	ID int64 `json:"id"`
}

type loginResponse struct {
	Token auth.Token `json:"token"`
	User  userRef    `json:"user"`
}

type userView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	BirthDate core.Date `json:"birth_date"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, tok, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "User logged in",
		log.FieldUserID, u.ID, log.FieldOperation, log.OpLogin)
	writeJSON(w, http.StatusOK, loginResponse{Token: tok, User: userRef{ID: u.ID}})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reg := services.Registration{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: req.Password,
	}
	if strings.TrimSpace(req.BirthDate) != "" {
		d, err := core.ParseDate(req.BirthDate)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		reg.BirthDate = d
	}
	u, tok, err := s.auth.Register(r.Context(), reg)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "User registered",
		log.FieldUserID, u.ID, log.FieldOperation, log.OpRegister)
	writeJSON(w, http.StatusCreated, loginResponse{Token: tok, User: userRef{ID: u.ID}})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	u, err := s.auth.Me(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		BirthDate: u.BirthDate,
		CreatedAt: u.CreatedAt,
	})
}
