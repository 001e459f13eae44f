// Package server is a small in-memory contacts REST service that speaks the
// same contract as the sync client. It backs local development and tests.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Contact struct {
	ID        string `json:"Id"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Title     string `json:"Title"`
	Phone     string `json:"Phone"`
	Email     string `json:"Email"`
}

type apiError struct {
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode"`
	Fields    []string `json:"fields,omitempty"`
}

type Server struct {
	httpServer *http.Server
	log        *zap.SugaredLogger
	port       int

	mu       sync.RWMutex
	contacts map[string]Contact
	seq      int
}

func New(port int, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		port:     port,
		log:      log,
		contacts: make(map[string]Contact),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/v1/contacts", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Patch("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port

	go func() {
		if err := s.httpServer.Serve(listener); err != http.ErrServerClosed {
			s.log.Errorw("HTTP server error", "error", err)
		}
	}()

	s.log.Infow("contacts server listening", "port", s.port)
	return nil
}

func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Port() int {
	return s.port
}

// Seed stores c as-is, assigning an id when it has none.
func (s *Server) Seed(c Contact) Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = s.nextID()
	}
	s.contacts[c.ID] = c
	return c
}

func (s *Server) nextID() string {
	s.seq++
	return fmt.Sprintf("003%015d", s.seq)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debugw("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "took", time.Since(start))
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	list := make([]Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		list = append(list, c)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	c, ok := s.contacts[id]
	s.mu.RUnlock()

	if !ok {
		writeErrors(w, http.StatusNotFound, apiError{Message: "The requested resource does not exist", ErrorCode: "NOT_FOUND"})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var c Contact
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeErrors(w, http.StatusBadRequest, apiError{Message: "Malformed JSON: " + err.Error(), ErrorCode: "JSON_PARSER_ERROR"})
		return
	}
	if errs := validate(c); len(errs) > 0 {
		writeErrors(w, http.StatusBadRequest, errs...)
		return
	}

	s.mu.Lock()
	c.ID = s.nextID()
	s.contacts[c.ID] = c
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var c Contact
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeErrors(w, http.StatusBadRequest, apiError{Message: "Malformed JSON: " + err.Error(), ErrorCode: "JSON_PARSER_ERROR"})
		return
	}
	if errs := validate(c); len(errs) > 0 {
		writeErrors(w, http.StatusBadRequest, errs...)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contacts[id]; !ok {
		writeErrors(w, http.StatusNotFound, apiError{Message: "The requested resource does not exist", ErrorCode: "NOT_FOUND"})
		return
	}
	c.ID = id
	s.contacts[id] = c
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	_, ok := s.contacts[id]
	delete(s.contacts, id)
	s.mu.Unlock()

	if !ok {
		writeErrors(w, http.StatusNotFound, apiError{Message: "The requested resource does not exist", ErrorCode: "NOT_FOUND"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// validate mirrors the usual CRM rules: a last name is required and an email,
// when present, must look like one.
func validate(c Contact) []apiError {
	var errs []apiError
	if strings.TrimSpace(c.LastName) == "" {
		errs = append(errs, apiError{
			Message:   "Required fields are missing: [LastName]",
			ErrorCode: "REQUIRED_FIELD_MISSING",
			Fields:    []string{"LastName"},
		})
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		errs = append(errs, apiError{
			Message:   "Email: invalid email address: " + c.Email,
			ErrorCode: "INVALID_EMAIL_ADDRESS",
			Fields:    []string{"Email"},
		})
	}
	return errs
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrors(w http.ResponseWriter, status int, errs ...apiError) {
	writeJSON(w, status, errs)
}
