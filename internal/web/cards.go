package web

import (
	"net/http"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
	"github.com/conorfennell/memobox/internal/leitner"
)

type createCardRequest struct {
	BoxID      int64  `json:"box_id" validate:"required,gt=0"`
	SourceText string `json:"source_text" validate:"required"`
	TargetText string `json:"target_text" validate:"required"`
}

type updateCardRequest struct {
	SourceText *string `json:"source_text" validate:"omitempty,min=1"`
	TargetText *string `json:"target_text" validate:"omitempty,min=1"`
}

type recallRequest struct {
	// A pointer so a missing field is told apart from false.
	Remembered *bool `json:"remembered" validate:"required"`
}

type cardResponse struct {
	ID            int64      `json:"id"`
	BoxID         int64      `json:"box_id"`
	SourceText    string     `json:"source_text"`
	TargetText    string     `json:"target_text"`
	Imported      bool       `json:"imported"`
	IntervalIndex int        `json:"interval_index"`
	LastRecall    *time.Time `json:"last_recall"`
	NextRecall    time.Time  `json:"next_recall"`
	Due           bool       `json:"due"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func newCardResponse(c domain.Card, now time.Time) cardResponse {
	return cardResponse{
		ID:            c.ID,
		BoxID:         c.BoxID,
		SourceText:    c.SourceText,
		TargetText:    c.TargetText,
		Imported:      c.Hash != "",
		IntervalIndex: c.IntervalIndex,
		LastRecall:    c.LastRecallAt,
		NextRecall:    c.NextRecallAt,
		Due:           leitner.IsDue(c.RecallState(), now),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (s *Server) cardList(cards []domain.Card) []cardResponse {
	now := s.clock.Now()
	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, newCardResponse(c, now))
	}
	return out
}

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if !s.decode(w, r, &req) {
		return
	}
	if _, err := s.db.GetBox(r.Context(), req.BoxID); err != nil {
		s.fail(w, r, err)
		return
	}
	now := s.clock.Now()
	card := &domain.Card{BoxID: req.BoxID, SourceText: req.SourceText, TargetText: req.TargetText}
	if err := s.db.InsertCard(r.Context(), card, now); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCardResponse(*card, now))
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}
	card, err := s.db.GetCard(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCardResponse(*card, s.clock.Now()))
}

func (s *Server) handleUpdateCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}
	var req updateCardRequest
	if !s.decode(w, r, &req) {
		return
	}
	card, err := s.db.GetCard(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.SourceText != nil {
		card.SourceText = *req.SourceText
	}
	if req.TargetText != nil {
		card.TargetText = *req.TargetText
	}
	now := s.clock.Now()
	if err := s.db.UpdateCardText(r.Context(), id, card.SourceText, card.TargetText, now); err != nil {
		s.fail(w, r, err)
		return
	}
	card.UpdatedAt = now
	writeJSON(w, http.StatusOK, newCardResponse(*card, now))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}
	if err := s.db.DeleteCard(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	boxID, ok := pathID(w, r, "boxID")
	if !ok {
		return
	}
	if _, err := s.db.GetBox(r.Context(), boxID); err != nil {
		s.fail(w, r, err)
		return
	}
	cards, err := s.db.ListCards(r.Context(), boxID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cardList(cards))
}

// handleRecall records a review outcome and returns the new schedule.
func (s *Server) handleRecall(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}
	var req recallRequest
	if !s.decode(w, r, &req) {
		return
	}
	card, err := s.reviews.Recall(r.Context(), id, *req.Remembered)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":             card.ID,
		"interval_index": card.IntervalIndex,
		"interval_days":  s.reviews.Scheduler().Ladder().Days(card.IntervalIndex),
		"last_recall":    card.LastRecallAt,
		"next_recall":    card.NextRecallAt,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "cardID")
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.db.GetCard(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	events, err := s.db.RecallHistory(r.Context(), id, int(limit))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	type eventResponse struct {
		Remembered bool      `json:"remembered"`
		FromIndex  int       `json:"from_index"`
		ToIndex    int       `json:"to_index"`
		RecordedAt time.Time `json:"recorded_at"`
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{e.Remembered, e.FromIndex, e.ToIndex, e.RecordedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDue lists due cards across boxes, or of one box with ?box=.
func (s *Server) handleDue(w http.ResponseWriter, r *http.Request) {
	boxID, err := queryInt(r, "box")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeDue(w, r, boxID)
}

func (s *Server) handleBoxDue(w http.ResponseWriter, r *http.Request) {
	boxID, ok := pathID(w, r, "boxID")
	if !ok {
		return
	}
	if _, err := s.db.GetBox(r.Context(), boxID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeDue(w, r, boxID)
}

func (s *Server) writeDue(w http.ResponseWriter, r *http.Request, boxID int64) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cards, err := s.reviews.Due(r.Context(), boxID, int(limit))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(cards),
		"cards": s.cardList(cards),
	})
}
