package http

import (
	"net/http"

	"fintrack/internal/core"
)

type categoryRequest struct {
	Name string `json:"name"`
}

type categoryDeleted struct {
	Detached int64 `json:"detached"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	cats, err := s.categories.List(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

// handleCreateCategory answers 201 for a new category and 200 when one with
// the same name already existed.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cat, created, err := s.categories.Ensure(r.Context(), uid, req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	detached, err := s.categories.Delete(r.Context(), uid, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryDeleted{Detached: detached})
}
