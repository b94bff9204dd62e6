package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
)

type savingRequest struct {
	Priority    int        `json:"priority"`
	Description string     `json:"description"`
	Value       core.Money `json:"value"`
	Goal        core.Money `json:"goal"`
}

type savingView struct {
	ID          int64      `json:"id"`
	Priority    int        `json:"priority"`
	Description string     `json:"description"`
	Value       core.Money `json:"value"`
	Goal        core.Money `json:"goal"`
	Progress    float64    `json:"progress"`
	Remaining   core.Money `json:"remaining"`
}

func viewSaving(s core.Saving) savingView {
	return savingView{
		ID:          s.ID,
		Priority:    s.Priority,
		Description: s.Description,
		Value:       s.Value,
		Goal:        s.Goal,
		Progress:    s.Progress(),
		Remaining:   s.Remaining(),
	}
}

func (req savingRequest) saving() core.Saving {
	return core.Saving{
		Priority:    req.Priority,
		Description: strings.TrimSpace(req.Description),
		Value:       req.Value,
		Goal:        req.Goal,
	}
}

func (s *Server) handleListSavings(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	savings, err := s.savings.List(r.Context(), uid)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]savingView, 0, len(savings))
	for _, sv := range savings {
		out = append(out, viewSaving(sv))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSaving(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req savingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.savings.Create(r.Context(), uid, req.saving())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewSaving(created))
}

func (s *Server) handleUpdateSaving(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req savingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saving := req.saving()
	saving.ID = id
	updated, err := s.savings.Update(r.Context(), uid, saving)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSaving(updated))
}

func (s *Server) handleDeleteSaving(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.savings.Delete(r.Context(), uid, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
