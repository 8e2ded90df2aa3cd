// Package web exposes the five demo lifecycle operations as a JSON
// HTTP API. Authentication of the requesting operator happens in a
// fronting layer; this server trusts the X-Requester header it sets.
package web

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"demodesk/internal/provisioner"
)

const requesterHeader = "X-Requester"

// Server routes lifecycle requests to the provisioner service.
type Server struct {
	svc    *provisioner.Service
	router chi.Router
}

// NewServer builds the HTTP surface over a provisioner service.
func NewServer(svc *provisioner.Service) *Server {
	s := &Server{svc: svc}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Printf("warning: healthz write error: %v", err)
		}
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleInitialState)
		r.Post("/users", s.handleCreateUser)
		r.Post("/users/password-reset", s.handleResetPassword)
		r.Delete("/users", s.handleDeleteAccount)
		r.Post("/scripts", s.handleGenerateScript)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requester extracts the authenticated operator identity. A missing
// header is a client error, not a provisioning failure.
func requester(r *http.Request) string {
	return r.Header.Get(requesterHeader)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("warning: failed to encode response: %v", err)
	}
}

// failure is the uniform {success:false, error} shape for errors the
// HTTP layer itself detects.
type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeMissingRequester(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, failure{Error: "missing " + requesterHeader + " header"})
}

func (s *Server) handleInitialState(w http.ResponseWriter, r *http.Request) {
	req := requester(r)
	if req == "" {
		writeMissingRequester(w)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.GetInitialState(r.Context(), req))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	req := requester(r)
	if req == "" {
		writeMissingRequester(w)
		return
	}
	var body struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, failure{Error: "invalid request body"})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.CreateAccount(r.Context(), req, body.FirstName, body.LastName))
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	req := requester(r)
	if req == "" {
		writeMissingRequester(w)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.ResetPassword(r.Context(), req))
}

func (s *Server) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	req := requester(r)
	if req == "" {
		writeMissingRequester(w)
		return
	}
	var body struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, failure{Error: "invalid request body"})
		return
	}
	writeJSON(w, http.StatusOK, s.svc.GenerateScript(r.Context(), req, body.Context))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	req := requester(r)
	if req == "" {
		writeMissingRequester(w)
		return
	}
	email := r.URL.Query().Get("email")
	writeJSON(w, http.StatusOK, s.svc.DeleteAccount(r.Context(), req, email))
}
