package web

import (
	"net/http"
	"time"
)

type sourceRequest struct {
	Path string `json:"path" validate:"required"`
}

type sourceResponse struct {
	ID          int64      `json:"id"`
	Path        string     `json:"path"`
	Type        string     `json:"type"`
	BoxID       *int64     `json:"box_id"`
	LastScanned *time.Time `json:"last_scanned"`
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetAllSources(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		resp := sourceResponse{ID: src.ID, Path: src.Path, Type: src.Type, LastScanned: src.LastScanned}
		if src.BoxID.Valid {
			id := src.BoxID.Int64
			resp.BoxID = &id
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleAddSource registers a deck source; cards arrive on the next sync.
func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.syncer.AddSource(r.Context(), req.Path)
	if err != nil {
		s.logger.Error("failed to add source", "path", req.Path, "error", err)
		writeError(w, http.StatusBadRequest, "failed to add source")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "path": req.Path})
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "sourceID")
	if !ok {
		return
	}
	if err := s.db.DeleteSource(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSync runs a sync in the foreground and reports per-source results.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	reports, err := s.syncer.RunSync(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	type result struct {
		SourceID int64    `json:"source_id"`
		BoxID    int64    `json:"box_id"`
		Parsed   int      `json:"parsed"`
		Inserted int      `json:"inserted"`
		Deleted  int      `json:"deleted"`
		Errors   []string `json:"errors,omitempty"`
	}
	out := make([]result, 0, len(reports))
	for _, rep := range reports {
		res := result{SourceID: rep.SourceID, BoxID: rep.BoxID, Parsed: rep.Parsed, Inserted: rep.Inserted, Deleted: rep.Deleted}
		for _, e := range rep.Errors {
			res.Errors = append(res.Errors, e.Error())
		}
		out = append(out, res)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": out})
}
