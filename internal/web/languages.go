package web

import (
	"net/http"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
)

type languageRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Code string `json:"code" validate:"required,max=255"`
}

type updateLanguageRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=255"`
	Code *string `json:"code" validate:"omitempty,min=1,max=255"`
}

type languageResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func newLanguageResponse(l domain.Language) languageResponse {
	return languageResponse{ID: l.ID, Name: l.Name, Code: l.Code, CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt}
}

func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := s.db.ListLanguages(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]languageResponse, 0, len(langs))
	for _, l := range langs {
		out = append(out, newLanguageResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if !s.decode(w, r, &req) {
		return
	}
	lang := &domain.Language{Name: req.Name, Code: req.Code}
	if err := s.db.InsertLanguage(r.Context(), lang, s.clock.Now()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newLanguageResponse(*lang))
}

func (s *Server) handleGetLanguage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "languageID")
	if !ok {
		return
	}
	lang, err := s.db.GetLanguage(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLanguageResponse(*lang))
}

func (s *Server) handleUpdateLanguage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "languageID")
	if !ok {
		return
	}
	var req updateLanguageRequest
	if !s.decode(w, r, &req) {
		return
	}
	lang, err := s.db.GetLanguage(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Name != nil {
		lang.Name = *req.Name
	}
	if req.Code != nil {
		lang.Code = *req.Code
	}
	if err := s.db.UpdateLanguage(r.Context(), lang, s.clock.Now()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLanguageResponse(*lang))
}

func (s *Server) handleDeleteLanguage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "languageID")
	if !ok {
		return
	}
	if err := s.db.DeleteLanguage(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
