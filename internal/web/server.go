// Package web serves the memobox JSON API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/memobox/internal/leitner"
	"github.com/conorfennell/memobox/internal/review"
	"github.com/conorfennell/memobox/internal/storage"
	"github.com/conorfennell/memobox/internal/sync"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	db       *storage.DB
	reviews  *review.Service
	syncer   *sync.Syncer
	clock    review.Clock
	logger   *slog.Logger
	validate *validator.Validate
	router   chi.Router
	version  string
	started  time.Time
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, reviews *review.Service, syncer *sync.Syncer, clock review.Clock, logger *slog.Logger, version string) *Server {
	s := &Server{
		db:       db,
		reviews:  reviews,
		syncer:   syncer,
		clock:    clock,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/languages", s.handleListLanguages)
		r.Post("/languages", s.handleCreateLanguage)
		r.Get("/languages/{languageID}", s.handleGetLanguage)
		r.Patch("/languages/{languageID}", s.handleUpdateLanguage)
		r.Delete("/languages/{languageID}", s.handleDeleteLanguage)

		r.Get("/boxes", s.handleListBoxes)
		r.Post("/boxes", s.handleCreateBox)
		r.Get("/boxes/{boxID}", s.handleGetBox)
		r.Patch("/boxes/{boxID}", s.handleUpdateBox)
		r.Delete("/boxes/{boxID}", s.handleDeleteBox)
		r.Get("/boxes/{boxID}/cards", s.handleListCards)
		r.Get("/boxes/{boxID}/due", s.handleBoxDue)

		r.Post("/cards", s.handleCreateCard)
		r.Get("/cards/due", s.handleDue)
		r.Get("/cards/{cardID}", s.handleGetCard)
		r.Patch("/cards/{cardID}", s.handleUpdateCard)
		r.Delete("/cards/{cardID}", s.handleDeleteCard)
		r.Post("/cards/{cardID}/recall", s.handleRecall)
		r.Get("/cards/{cardID}/history", s.handleHistory)

		r.Get("/sources", s.handleListSources)
		r.Post("/sources", s.handleAddSource)
		r.Delete("/sources/{sourceID}", s.handleDeleteSource)
		r.Post("/sync", s.handleSync)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db.Ping(r.Context()) == nil
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"ladder":  s.reviews.Scheduler().Ladder().Values(),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps store and scheduler errors to responses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicate):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, storage.ErrConflict):
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "card was updated concurrently, retry the request",
			"retryable": true,
		})
	case errors.Is(err, leitner.ErrIndexOutOfRange):
		s.logger.Error("card state outside the configured ladder", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "card schedule is inconsistent with the configured ladder")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request", "fields": fields})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string) (int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}
