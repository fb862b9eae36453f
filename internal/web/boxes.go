package web

import (
	"net/http"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
)

type boxRequest struct {
	Name             string `json:"name" validate:"required,max=255"`
	Description      string `json:"description"`
	SourceLanguageID *int64 `json:"source_language_id" validate:"omitempty,gt=0"`
	TargetLanguageID *int64 `json:"target_language_id" validate:"omitempty,gt=0"`
}

// updateBoxRequest holds the fields a PATCH may change; absent fields stay.
type updateBoxRequest struct {
	Name             *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description      *string `json:"description"`
	SourceLanguageID *int64  `json:"source_language_id" validate:"omitempty,gt=0"`
	TargetLanguageID *int64  `json:"target_language_id" validate:"omitempty,gt=0"`
}

type boxResponse struct {
	ID             int64             `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	SourceLanguage *languageResponse `json:"source_language"`
	TargetLanguage *languageResponse `json:"target_language"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func newBoxResponse(b domain.Box) boxResponse {
	resp := boxResponse{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
	if b.SourceLanguage != nil {
		l := newLanguageResponse(*b.SourceLanguage)
		resp.SourceLanguage = &l
	}
	if b.TargetLanguage != nil {
		l := newLanguageResponse(*b.TargetLanguage)
		resp.TargetLanguage = &l
	}
	return resp
}

func (s *Server) handleListBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := s.db.ListBoxes(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]boxResponse, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, newBoxResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBox(w http.ResponseWriter, r *http.Request) {
	var req boxRequest
	if !s.decode(w, r, &req) {
		return
	}
	box := &domain.Box{
		Name:             req.Name,
		Description:      req.Description,
		SourceLanguageID: req.SourceLanguageID,
		TargetLanguageID: req.TargetLanguageID,
	}
	if err := s.db.InsertBox(r.Context(), box, s.clock.Now()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBox(w, r, http.StatusCreated, box.ID)
}

func (s *Server) handleGetBox(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "boxID")
	if !ok {
		return
	}
	s.writeBox(w, r, http.StatusOK, id)
}

func (s *Server) handleUpdateBox(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "boxID")
	if !ok {
		return
	}
	var req updateBoxRequest
	if !s.decode(w, r, &req) {
		return
	}
	box, err := s.db.GetBox(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Name != nil {
		box.Name = *req.Name
	}
	if req.Description != nil {
		box.Description = *req.Description
	}
	if req.SourceLanguageID != nil {
		box.SourceLanguageID = req.SourceLanguageID
	}
	if req.TargetLanguageID != nil {
		box.TargetLanguageID = req.TargetLanguageID
	}
	if err := s.db.UpdateBox(r.Context(), box, s.clock.Now()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeBox(w, r, http.StatusOK, id)
}

func (s *Server) handleDeleteBox(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "boxID")
	if !ok {
		return
	}
	if err := s.db.DeleteBox(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeBox re-reads the box so the response carries its languages.
func (s *Server) writeBox(w http.ResponseWriter, r *http.Request, status int, id int64) {
	box, err := s.db.GetBox(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, status, newBoxResponse(*box))
}
